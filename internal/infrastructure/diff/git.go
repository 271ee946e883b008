package diff

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

// ExecFunc runs git with args in dir and returns stdout. A failed command
// should return a *domain.DiffUnavailableError carrying stderr.
type ExecFunc func(ctx context.Context, dir string, args []string) ([]byte, error)

// GitDiff reads changes of the working tree against a baseline ref.
//
// Both commands run with --relative, so when Dir is a module inside the
// repository only that module's changes are listed and paths are relative
// to Dir, the same frame source roots are resolved in.
type GitDiff struct {
	Dir  string
	Exec ExecFunc
}

// ChangedFiles runs `git diff --relative --name-status <ref>` and returns the path of
// every line. For renames and copies the destination path is used.
func (g GitDiff) ChangedFiles(ctx context.Context, ref string) ([]string, error) {
	out, err := g.run(ctx, []string{"diff", "--relative", "--name-status", ref})
	if err != nil {
		return nil, err
	}
	return parseNameStatus(string(out)), nil
}

// DiffText runs `git diff --relative <ref>` and returns its raw output.
func (g GitDiff) DiffText(ctx context.Context, ref string) (string, error) {
	out, err := g.run(ctx, []string{"diff", "--relative", ref})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (g GitDiff) run(ctx context.Context, args []string) ([]byte, error) {
	execFn := g.Exec
	if execFn == nil {
		execFn = runGitOutput
	}
	return execFn(ctx, g.Dir, args)
}

func parseNameStatus(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	files := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		path := strings.TrimSpace(fields[len(fields)-1])
		if path == "" {
			continue
		}
		files = append(files, filepath.ToSlash(filepath.Clean(path)))
	}
	return files
}

var _ application.ChangeSource = GitDiff{}

func runGitOutput(ctx context.Context, dir string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &domain.DiffUnavailableError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}
