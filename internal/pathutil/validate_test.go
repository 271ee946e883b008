package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "empty", path: "", wantErr: ErrEmptyPath},
		{name: "null byte", path: "report\x00.xml", wantErr: ErrNullBytes},
		{name: "missing file is cleaned", path: "target/../target/site/jacoco.xml", want: filepath.Clean("target/site/jacoco.xml")},
		{name: "dot segments", path: "./build/./lcov.info", want: filepath.Clean("build/lcov.info")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePath(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePathResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "jacoco.xml")
	require.NoError(t, os.WriteFile(target, []byte("<report/>"), 0o644))
	link := filepath.Join(dir, "latest.xml")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := ValidatePath(link)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "history.json")
	tests := []struct {
		name    string
		baseDir string
		path    string
		want    string
	}{
		{"no base dir", "", "target/jacoco.xml", "target/jacoco.xml"},
		{"empty path", "service", "", ""},
		{"relative", "service", "target/jacoco.xml", filepath.Join("service", "target/jacoco.xml")},
		{"absolute", "service", abs, abs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.baseDir, tt.path))
		})
	}
}

func TestSlash(t *testing.T) {
	assert.Equal(t, "src/main/java/com/acme/Foo.java", Slash(filepath.Join("src", "main", "java", "..", "java", "com", "acme", "Foo.java")))
	assert.Equal(t, ".", Slash(""))
}

func TestRel(t *testing.T) {
	base := filepath.Join(t.TempDir(), "repo")
	file := filepath.ToSlash(filepath.Join(base, "src", "Foo.java"))
	assert.Equal(t, "src/Foo.java", Rel(base, file))
	assert.Equal(t, file, Rel(filepath.Join(t.TempDir(), "elsewhere"), file))
	assert.Equal(t, file, Rel("", file))
}
