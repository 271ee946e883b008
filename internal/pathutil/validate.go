// Package pathutil holds the path handling shared by the report readers,
// the correlator and the history store.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath = errors.New("path is empty")
	ErrNullBytes = errors.New("path contains null bytes")
)

// ValidatePath cleans path and resolves symlinks when it exists. A path that
// does not exist yet is returned cleaned.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "\x00") {
		return "", ErrNullBytes
	}
	realPath, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		return cleaned, nil
	}
	return realPath, nil
}

// Resolve joins a relative p onto baseDir. Empty and absolute paths, and
// any path when baseDir is empty, come back unchanged.
func Resolve(baseDir, p string) string {
	if p == "" || baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Slash cleans p and converts it to forward slashes, the form changed file
// ids and record names are compared in.
func Slash(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// Rel returns p relative to base in slash form, or p unchanged when it does
// not live under base.
func Rel(base, p string) string {
	if base == "" {
		return p
	}
	rel, err := filepath.Rel(filepath.Clean(base), filepath.FromSlash(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}
