// Package changeset narrows the set of changed files before coverage is
// correlated. Every predicate must accept a file for it to be kept.
package changeset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/samber/lo"
)

// Predicate reports whether a changed file should be kept.
type Predicate func(file string) bool

// Spec is the declarative form of a filter set, as read from configuration.
type Spec struct {
	IncludePaths    []string `yaml:"includePaths,omitempty" json:"includePaths,omitempty"`
	ExcludePaths    []string `yaml:"excludePaths,omitempty" json:"excludePaths,omitempty"`
	IncludePatterns []string `yaml:"includePatterns,omitempty" json:"includePatterns,omitempty"`
	ExcludePatterns []string `yaml:"excludePatterns,omitempty" json:"excludePatterns,omitempty"`
}

// Filters is an AND-combined list of predicates. The zero value keeps everything.
type Filters struct {
	baseDir    string
	predicates []Predicate
}

// NewFilters creates an empty filter set. Relative changed files are resolved
// against baseDir when a predicate needs an absolute parent directory.
func NewFilters(baseDir string) *Filters {
	return &Filters{baseDir: baseDir}
}

// Build compiles a Spec plus doublestar exclusion globs into a filter set.
func Build(baseDir string, spec Spec, excludeGlobs []string) (*Filters, error) {
	f := NewFilters(baseDir)
	for _, p := range spec.IncludePaths {
		f.IncludePath(p)
	}
	for _, p := range spec.ExcludePaths {
		f.ExcludePath(p)
	}
	for _, p := range spec.IncludePatterns {
		if err := f.IncludePattern(p); err != nil {
			return nil, err
		}
	}
	for _, p := range spec.ExcludePatterns {
		if err := f.ExcludePattern(p); err != nil {
			return nil, err
		}
	}
	if err := f.ExcludeGlobs(excludeGlobs); err != nil {
		return nil, err
	}
	return f, nil
}

// IncludePath keeps files whose absolute parent directory contains dir.
// Files without a parent directory are dropped.
func (f *Filters) IncludePath(dir string) {
	if dir == "" {
		return
	}
	f.Add(func(file string) bool {
		parent, ok := f.parent(file)
		return ok && strings.Contains(parent, dir)
	})
}

// ExcludePath drops files whose absolute parent directory contains dir.
// Files without a parent directory are kept.
func (f *Filters) ExcludePath(dir string) {
	if dir == "" {
		return
	}
	f.Add(func(file string) bool {
		parent, ok := f.parent(file)
		return !ok || !strings.Contains(parent, dir)
	})
}

// IncludePattern keeps files whose base name matches the glob pattern.
func (f *Filters) IncludePattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid include pattern %q: %w", pattern, err)
	}
	f.Add(func(file string) bool {
		return g.Match(filepath.Base(file))
	})
	return nil
}

// ExcludePattern drops files whose base name matches the glob pattern.
func (f *Filters) ExcludePattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
	}
	f.Add(func(file string) bool {
		return !g.Match(filepath.Base(file))
	})
	return nil
}

// ExcludeGlobs drops files whose slash path matches any doublestar pattern,
// e.g. "**/generated/**".
func (f *Filters) ExcludeGlobs(patterns []string) error {
	patterns = lo.Compact(patterns)
	if len(patterns) == 0 {
		return nil
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude glob: %v", p)
		}
	}
	f.Add(func(file string) bool {
		slashed := filepath.ToSlash(file)
		return !lo.SomeBy(patterns, func(p string) bool {
			m, err := doublestar.Match(p, slashed)
			return err == nil && m
		})
	})
	return nil
}

// Add appends a custom predicate. A nil predicate is ignored.
func (f *Filters) Add(p Predicate) {
	if p != nil {
		f.predicates = append(f.predicates, p)
	}
}

// Len returns the number of registered predicates.
func (f *Filters) Len() int {
	if f == nil {
		return 0
	}
	return len(f.predicates)
}

// Matches reports whether every predicate accepts file.
func (f *Filters) Matches(file string) bool {
	if f == nil {
		return true
	}
	return lo.EveryBy(f.predicates, func(p Predicate) bool {
		return p(file)
	})
}

func (f *Filters) parent(file string) (string, bool) {
	dir := filepath.Dir(filepath.FromSlash(file))
	if dir == "." && !filepath.IsAbs(file) {
		return "", false
	}
	if !filepath.IsAbs(dir) && f.baseDir != "" {
		dir = filepath.Join(f.baseDir, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(abs), true
}

// Filter returns the files accepted by filters, in input order and without
// duplicates. A nil or empty filter set keeps every file.
func Filter(files []string, filters *Filters) []string {
	return lo.Filter(lo.Uniq(files), func(file string, _ int) bool {
		return filters.Matches(file)
	})
}
