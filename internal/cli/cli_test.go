package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
	mcpserver "github.com/linebyline/covgate/internal/mcp"
)

var errSentinel = errors.New("boom")

type fakeService struct {
	checkErr      error
	checkOpts     *application.CheckOptions
	linesErr      error
	linesOpts     *application.LinesOptions
	detectErr     error
	detectCfg     application.Config
	historyErr    error
	historyResult application.HistoryResult
	commentErr    error
	commentResult application.PRCommentResult
	commentOpts   *application.PRCommentOptions
	watchRuns     []error
}

func (f fakeService) Check(_ context.Context, opts application.CheckOptions) error {
	if f.checkOpts != nil {
		*f.checkOpts = opts
	}
	return f.checkErr
}

func (f fakeService) CheckResult(_ context.Context, _ application.CheckOptions) (application.Result, application.Config, error) {
	return application.Result{}, application.Config{}, f.checkErr
}

func (f fakeService) ChangedLines(_ context.Context, _ application.LinesOptions) (domain.ChangedLineSet, error) {
	return domain.ChangedLineSet{}, f.linesErr
}

func (f fakeService) Lines(_ context.Context, opts application.LinesOptions) error {
	if f.linesOpts != nil {
		*f.linesOpts = opts
	}
	return f.linesErr
}

func (f fakeService) Detect(_ context.Context) (application.Config, error) {
	if f.detectErr != nil {
		return application.Config{}, f.detectErr
	}
	return f.detectCfg, nil
}

func (f fakeService) History(_ context.Context, _ application.HistoryOptions) (application.HistoryResult, error) {
	return f.historyResult, f.historyErr
}

func (f fakeService) Comment(_ context.Context, opts application.PRCommentOptions) (application.PRCommentResult, error) {
	if f.commentOpts != nil {
		*f.commentOpts = opts
	}
	return f.commentResult, f.commentErr
}

func (f fakeService) Watch(_ context.Context, _ application.WatchOptions, _ application.FileWatcher, callback application.WatchCallback) error {
	for i, err := range f.watchRuns {
		callback(i+1, err)
	}
	return nil
}

func minimalConfig(t *testing.T) application.Config {
	t.Helper()
	cfg := application.DefaultConfig()
	rule, err := domain.NewRule(domain.RuleTotalChangedLines, 70)
	require.NoError(t, err)
	cfg.Rules = []domain.Rule{rule}
	cfg.Coverage.Report = "target/site/jacoco/jacoco.xml"
	return cfg
}

func TestRunUsage(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"covgate"}, &out, &out, fakeService{})
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, out.String(), "covgate <command>")
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"covgate", "nope"}, &stdout, &stderr, fakeService{})
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "Run 'covgate --help' for usage.")
}

func TestRunUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"covgate", "check", "--bogus"}, &stdout, &stderr, fakeService{})
	assert.Equal(t, exitUsage, code)
}

func TestRunCheck(t *testing.T) {
	var got application.CheckOptions
	var out bytes.Buffer
	code := Run([]string{"covgate", "check", "-o", "brief", "--report", "build/lcov.info", "--base-ref", "origin/develop", "--config", "custom.yaml"},
		&out, &out, fakeService{checkOpts: &got})
	require.Equal(t, exitOK, code)
	assert.Equal(t, application.OutputBrief, got.Output)
	assert.Equal(t, "build/lcov.info", got.Report)
	assert.Equal(t, "origin/develop", got.BaseRef)
	assert.Equal(t, "custom.yaml", got.ConfigPath)
	assert.Nil(t, got.FailOnError, "fail-on-error should only be set when given")
}

func TestRunCheckFailOnError(t *testing.T) {
	var got application.CheckOptions
	var out bytes.Buffer
	code := Run([]string{"covgate", "check", "--fail-on-error=false"}, &out, &out, fakeService{checkOpts: &got})
	require.Equal(t, exitOK, code)
	require.NotNil(t, got.FailOnError)
	assert.False(t, *got.FailOnError)
}

func TestRunCheckInvalidOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"covgate", "check", "--output", "html"}, &stdout, &stderr, fakeService{})
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "invalid output format: html")
}

func TestRunCheckExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"pass", nil, exitOK},
		{"rules failed", application.ErrRulesFailed, exitFailed},
		{"invalid config", fmt.Errorf("load: %w", application.ErrInvalidConfig), exitUsage},
		{"threshold", domain.ErrInvalidThreshold, exitUsage},
		{"duplicate rule", domain.ErrDuplicateRuleKind, exitUsage},
		{"diff unavailable", fmt.Errorf("git: %w", domain.ErrDiffUnavailable), exitFatal},
		{"report unreadable", domain.ErrCoverageReportUnreadable, exitFatal},
		{"other", errSentinel, exitFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := Run([]string{"covgate", "check"}, &stdout, &stderr, fakeService{checkErr: tt.err})
			assert.Equal(t, tt.want, code)
			if tt.err == application.ErrRulesFailed {
				assert.Empty(t, stderr.String(), "failed rules are already reported")
			}
		})
	}
}

func TestRunCheckWatch(t *testing.T) {
	var out bytes.Buffer
	svc := fakeService{watchRuns: []error{nil, application.ErrRulesFailed, errSentinel}}
	code := Run([]string{"covgate", "check", "--watch"}, &out, &out, svc)
	require.Equal(t, exitOK, code)
	got := out.String()
	assert.Contains(t, got, "--- Run #1 at")
	assert.Contains(t, got, "All coverage rules passed")
	assert.Contains(t, got, "Coverage rules failed")
	assert.Contains(t, got, "Check failed: boom")
}

func TestRunLines(t *testing.T) {
	var got application.LinesOptions
	var out bytes.Buffer
	code := Run([]string{"covgate", "lines", "--base-ref", "HEAD~1"}, &out, &out, fakeService{linesOpts: &got})
	require.Equal(t, exitOK, code)
	assert.Equal(t, "HEAD~1", got.BaseRef)

	code = Run([]string{"covgate", "lines"}, &out, &out, fakeService{linesErr: domain.ErrDiffUnavailable})
	assert.Equal(t, exitFatal, code)
}

func TestRunDetectStdout(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"covgate", "detect"}, &out, &out, fakeService{detectCfg: minimalConfig(t)})
	require.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), "kind: TOTAL_CHANGED_LINES")
	assert.Contains(t, out.String(), "report: target/site/jacoco/jacoco.xml")
}

func TestRunDetectWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".covgate.yaml")
	var out bytes.Buffer
	code := Run([]string{"covgate", "detect", "--write-config", "--config", path}, &out, &out, fakeService{detectCfg: minimalConfig(t)})
	require.Equal(t, exitOK, code)
	_, err := os.Stat(path)
	require.NoError(t, err)

	code = Run([]string{"covgate", "detect", "--write-config", "--config", path}, &out, &out, fakeService{detectCfg: minimalConfig(t)})
	assert.Equal(t, exitUsage, code, "existing config needs --force")

	code = Run([]string{"covgate", "detect", "--write-config", "--force", "--config", path}, &out, &out, fakeService{detectCfg: minimalConfig(t)})
	assert.Equal(t, exitOK, code)
}

func TestRunDetectError(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"covgate", "detect"}, &out, &out, fakeService{detectErr: errSentinel})
	assert.Equal(t, exitFatal, code)
}

func TestRunInitCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".covgate.yaml")
	var out bytes.Buffer
	code := Run([]string{"covgate", "init", "--config", path, "--no-interactive"}, &out, &out, fakeService{detectCfg: minimalConfig(t)})
	require.Equal(t, exitOK, code)
	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Config written to")
}

func stubWizard(t *testing.T, fn func(application.Config, io.Writer, io.Reader) (application.Config, bool, error)) {
	t.Helper()
	old := initWizard
	t.Cleanup(func() { initWizard = old })
	initWizard = fn
}

func TestRunInitInteractive(t *testing.T) {
	called := false
	stubWizard(t, func(cfg application.Config, _ io.Writer, _ io.Reader) (application.Config, bool, error) {
		called = true
		return cfg, true, nil
	})
	path := filepath.Join(t.TempDir(), ".covgate.yaml")
	var out bytes.Buffer
	code := Run([]string{"covgate", "init", "--config", path}, &out, &out, fakeService{detectCfg: minimalConfig(t)})
	require.Equal(t, exitOK, code)
	assert.True(t, called, "expected interactive wizard to run")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestRunInitInteractiveCancelled(t *testing.T) {
	stubWizard(t, func(cfg application.Config, _ io.Writer, _ io.Reader) (application.Config, bool, error) {
		return cfg, false, nil
	})
	path := filepath.Join(t.TempDir(), ".covgate.yaml")
	var out bytes.Buffer
	code := Run([]string{"covgate", "init", "--config", path}, &out, &out, fakeService{detectCfg: minimalConfig(t)})
	require.Equal(t, exitOK, code)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "config should not exist when wizard cancels")
	assert.Contains(t, out.String(), "Init cancelled")
}

func TestRunInitWizardError(t *testing.T) {
	stubWizard(t, func(cfg application.Config, _ io.Writer, _ io.Reader) (application.Config, bool, error) {
		return cfg, false, errors.New("wizard failed")
	})
	path := filepath.Join(t.TempDir(), ".covgate.yaml")
	var out bytes.Buffer
	code := Run([]string{"covgate", "init", "--config", path}, &out, &out, fakeService{detectCfg: minimalConfig(t)})
	assert.Equal(t, exitFatal, code)
	assert.Contains(t, out.String(), "wizard failed")
}

func sampleHistory() application.HistoryResult {
	return application.HistoryResult{
		Entries: []domain.HistoryEntry{
			{
				Timestamp: time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC),
				BaseRef:   "origin/main",
				Commit:    "0123456789abcdef",
				Passed:    false,
				Rules: []domain.RuleEntry{
					{Kind: domain.RuleOverall, Threshold: 80, Success: true},
					{Kind: domain.RulePerClass, Threshold: 60, Success: false},
				},
			},
		},
		Runs:     2,
		PassRate: 50,
	}
}

func TestRunHistoryText(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"covgate", "history"}, &out, &out, fakeService{historyResult: sampleHistory()})
	require.Equal(t, exitOK, code)
	got := out.String()
	assert.Contains(t, got, "FAIL")
	assert.Contains(t, got, "01234567 ")
	assert.Contains(t, got, "PER_CLASS")
	assert.NotContains(t, got, "OVERALL")
	assert.Contains(t, got, "2 runs recorded, 50.00% passed")
}

func TestRunHistoryJSON(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"covgate", "history", "-o", "json"}, &out, &out, fakeService{historyResult: sampleHistory()})
	require.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), `"passRate": 50`)
}

func TestRunHistoryEmpty(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"covgate", "history"}, &out, &out, fakeService{})
	require.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), "No runs recorded yet")
}

func TestRunHistoryInvalidOutput(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"covgate", "history", "-o", "brief"}, &out, &out, fakeService{})
	assert.Equal(t, exitUsage, code)
}

func TestRunCommentDryRun(t *testing.T) {
	t.Setenv("CI_MERGE_REQUEST_IID", "")
	t.Setenv("GITHUB_REF", "refs/pull/17/merge")
	t.Setenv("GITHUB_REPOSITORY", "acme/shop")

	var got application.PRCommentOptions
	var out bytes.Buffer
	svc := fakeService{
		commentOpts:   &got,
		commentResult: application.PRCommentResult{CommentBody: "## body\n", Passed: true},
	}
	code := Run([]string{"covgate", "comment", "--dry-run", "--provider", "GitHub"}, &out, &out, svc)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "## body\n", out.String())
	assert.Equal(t, 17, got.PRNumber)
	assert.Equal(t, "acme", got.Owner)
	assert.Equal(t, "shop", got.Repo)
	assert.Equal(t, application.ProviderGitHub, got.Provider)
	assert.True(t, got.UpdateExisting)
}

func TestRunCommentPosted(t *testing.T) {
	var out bytes.Buffer
	svc := fakeService{commentResult: application.PRCommentResult{CommentID: 9, CommentURL: "https://example.test/c/9", Created: true}}
	code := Run([]string{"covgate", "comment", "--pr", "3", "--owner", "acme", "--repo", "shop"}, &out, &out, svc)
	assert.Equal(t, exitFailed, code, "a failing report still fails the command")
	assert.Contains(t, out.String(), "Created comment 9 https://example.test/c/9")
}

func TestRunCommentRequiresPR(t *testing.T) {
	t.Setenv("CI_MERGE_REQUEST_IID", "")
	t.Setenv("GITHUB_REF", "refs/heads/main")
	var stdout, stderr bytes.Buffer
	code := Run([]string{"covgate", "comment"}, &stdout, &stderr, fakeService{})
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "--pr is required")
}

func TestRunCommentInvalidProvider(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"covgate", "comment", "--provider", "bitbucket", "--pr", "1"}, &stdout, &stderr, fakeService{})
	assert.Equal(t, exitUsage, code)
}

func TestPRNumberFromEnv(t *testing.T) {
	t.Setenv("CI_MERGE_REQUEST_IID", "42")
	t.Setenv("GITHUB_REF", "refs/pull/7/merge")
	assert.Equal(t, 42, prNumberFromEnv())

	t.Setenv("CI_MERGE_REQUEST_IID", "")
	assert.Equal(t, 7, prNumberFromEnv())

	t.Setenv("GITHUB_REF", "refs/tags/v1")
	assert.Equal(t, 0, prNumberFromEnv())
}

func TestRunMCP(t *testing.T) {
	old := serveMCP
	t.Cleanup(func() { serveMCP = old })
	var gotPath string
	serveMCP = func(_ context.Context, _ mcpserver.Service, configPath string) error {
		gotPath = configPath
		return nil
	}
	var out bytes.Buffer
	code := Run([]string{"covgate", "mcp", "-c", "ci.yaml"}, &out, &out, fakeService{})
	require.Equal(t, exitOK, code)
	assert.Equal(t, "ci.yaml", gotPath)
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"covgate", "version"}, &out, &out, fakeService{})
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out.String(), "covgate dev"))
}

func TestVersionStringPrefersLinkerValues(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })
	Version, Commit = "1.2.3", "abc1234"

	assert.True(t, strings.HasPrefix(versionString(), "covgate 1.2.3 (commit abc1234, built "))
}

func TestWriteConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	e := &env{stdout: io.Discard}
	require.NoError(t, writeConfigFile(path, minimalConfig(t), e, false))
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = writeConfigFile(path, minimalConfig(t), e, false)
	var ue usageError
	assert.True(t, errors.As(err, &ue))
}

func TestBackendsHistoryStoreResolvesBaseDir(t *testing.T) {
	cfg := application.DefaultConfig()
	cfg.BaseDir = "service"
	store := backends{}.HistoryStore(cfg)
	require.NotNil(t, store)

	_, err := backends{}.LineExtractor(cfg)
	assert.NoError(t, err)

	cfg.Diff.Mode = "words"
	_, err = backends{}.LineExtractor(cfg)
	assert.Error(t, err)
}
