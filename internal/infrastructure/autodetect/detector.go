package autodetect

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/infrastructure/coverage/detector"
)

// Detector derives a configuration from the Maven or Gradle layout of Root.
type Detector struct {
	Root   string
	Layout *detector.Detector
}

func (d Detector) Detect() (application.Config, error) {
	root := d.Root
	if root == "" {
		root = "."
	}
	det := d.Layout
	if det == nil {
		det = detector.New()
	}

	layout := det.DetectLayout(root)
	cfg := application.DefaultConfig()

	if roots := detectSourceRoots(root, layout.SourceRoots); len(roots) > 0 {
		cfg.SourceRoots = roots
	}
	if layout.ClassesDir != "" && isDir(filepath.Join(root, layout.ClassesDir)) {
		cfg.Coverage.ClassesDir = layout.ClassesDir
	}
	if report, ok := det.FindReport(root, layout); ok {
		cfg.Coverage.Report = report
	} else if len(layout.Reports) > 0 {
		cfg.Coverage.Report = layout.Reports[0]
	}
	return cfg, nil
}

// detectSourceRoots returns the conventional roots that exist under root,
// plus the same roots inside direct child modules.
func detectSourceRoots(root string, conventional []string) []string {
	candidates := append([]string(nil), conventional...)
	candidates = append(candidates, "src/main/kotlin")

	var roots []string
	for _, c := range candidates {
		if isDir(filepath.Join(root, c)) {
			roots = append(roots, c)
		}
	}
	return append(roots, submodules(root, candidates)...)
}

func submodules(root string, candidates []string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	ignore := map[string]struct{}{"target": {}, "build": {}, "node_modules": {}, "src": {}}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name[0] == '.' {
			continue
		}
		if _, ok := ignore[name]; ok {
			continue
		}
		for _, c := range candidates {
			rel := filepath.ToSlash(filepath.Join(name, c))
			if isDir(filepath.Join(root, rel)) {
				out = append(out, rel)
			}
		}
	}
	sort.Strings(out)
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
