package cli

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

const moduleReport = `<?xml version="1.0" encoding="UTF-8"?>
<report name="module-a">
  <package name="com/acme">
    <class name="com/acme/Foo" sourcefilename="Foo.java">
      <counter type="INSTRUCTION" missed="27" covered="3"/>
      <counter type="LINE" missed="9" covered="1"/>
    </class>
    <sourcefile name="Foo.java">
      <line nr="2" mi="0" ci="3" mb="0" cb="0"/>
      <line nr="3" mi="3" ci="0" mb="0" cb="0"/>
    </sourcefile>
  </package>
</report>`

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// A module checked from its own directory sees module-relative paths, so
// records under the module's source roots match the changed files.
func TestBackendsEvaluateModuleInsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	source := filepath.Join(root, "module-a", "src", "main", "java", "com", "acme", "Foo.java")
	runGit(t, root, "init", "-q")
	writeTestFile(t, source, "package com.acme;\n")
	runGit(t, root, "add", "-A")
	runGit(t, root, "-c", "user.name=test", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false", "commit", "-q", "-m", "init")

	writeTestFile(t, source, "package com.acme;\npublic class Foo {\n  void run() {}\n}\n")
	writeTestFile(t, filepath.Join(root, "module-a", "target", "jacoco.xml"), moduleReport)

	cfg := application.DefaultConfig()
	cfg.BaseDir = filepath.Join(root, "module-a")
	cfg.BaseRef = "HEAD"
	cfg.Coverage.Report = "target/jacoco.xml"
	cfg.Coverage.Format = application.FormatJaCoCo

	b := backends{}
	extractor, err := b.LineExtractor(cfg)
	require.NoError(t, err)
	evaluator := &application.Evaluator{
		Changes:  b.ChangeSource(cfg),
		Lines:    extractor,
		Coverage: b.CoverageOpener(cfg),
	}
	registry, err := domain.NewRuleRegistry(domain.MustRule(domain.RulePerClass, 80))
	require.NoError(t, err)

	result, err := evaluator.Evaluate(context.Background(), registry, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/main/java/com/acme/Foo.java"}, result.ChangedFiles)
	outcome := result.Report.Outcomes[0].Result
	assert.False(t, outcome.Success())
	assert.Contains(t, outcome.Message(), "src/main/java/com/acme/Foo.java with an overall coverage of 10.00%")
}
