package domain

import "strings"

// ChangedLineSet maps literal diff header lines ("diff --git a/x b/x") to the
// added line numbers of that file section. Headers keep first-seen order.
//
// Line numbers are hunk-relative offsets unless produced by an absolute
// extractor; callers must not assume they are true file line numbers.
type ChangedLineSet struct {
	headers []string
	lines   map[string][]int
}

// NewChangedLineSet returns an empty set.
func NewChangedLineSet() ChangedLineSet {
	return ChangedLineSet{lines: make(map[string][]int)}
}

// Put stores the lines for header. A repeated header appends to its entry.
func (s *ChangedLineSet) Put(header string, lines []int) {
	if s.lines == nil {
		s.lines = make(map[string][]int)
	}
	if _, ok := s.lines[header]; !ok {
		s.headers = append(s.headers, header)
	}
	s.lines[header] = append(s.lines[header], lines...)
}

// Headers returns the header keys in insertion order.
func (s ChangedLineSet) Headers() []string {
	out := make([]string, len(s.headers))
	copy(out, s.headers)
	return out
}

// Lines returns the lines stored under the exact header.
func (s ChangedLineSet) Lines(header string) ([]int, bool) {
	lines, ok := s.lines[header]
	return lines, ok
}

// LinesForPath returns the lines of the first header, in insertion order,
// that contains name as a substring. Headers embed the path twice, so a
// record name like "com/acme/Foo" finds "diff --git a/src/com/acme/Foo.java b/...".
func (s ChangedLineSet) LinesForPath(name string) ([]int, bool) {
	for _, header := range s.headers {
		if strings.Contains(header, name) {
			return s.lines[header], true
		}
	}
	return nil, false
}

// Len returns the number of file sections in the set.
func (s ChangedLineSet) Len() int {
	return len(s.headers)
}

// IsEmpty reports whether no file contributed changed lines.
func (s ChangedLineSet) IsEmpty() bool {
	return len(s.headers) == 0
}

// TotalLines returns the number of changed lines across all files.
func (s ChangedLineSet) TotalLines() int {
	total := 0
	for _, lines := range s.lines {
		total += len(lines)
	}
	return total
}
