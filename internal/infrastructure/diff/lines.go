package diff

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

var headerPattern = regexp.MustCompile(`^diff --git a/.* b/.*$`)

// DefaultMarker is the token a file section must contain before its added
// lines are recorded.
const DefaultMarker = "class"

// Marker decides whether a line is the structural marker of a file section.
type Marker func(line string) bool

// ContainsMarker matches lines containing token. An empty token matches
// every line, which disables marker gating.
func ContainsMarker(token string) Marker {
	return func(line string) bool {
		return strings.Contains(line, token)
	}
}

// Option configures an extractor.
type Option func(*options)

type options struct {
	marker Marker
}

// WithMarker replaces the default "class" marker.
func WithMarker(m Marker) Option {
	return func(o *options) {
		if m != nil {
			o.marker = m
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{marker: ContainsMarker(DefaultMarker)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// HunkExtractor reports added lines as hunk-relative offsets: the line right
// after a hunk header is offset 0 and every later line of the hunk counts,
// whether added, removed or context.
type HunkExtractor struct {
	marker Marker
}

// NewHunkExtractor creates an extractor using the default marker unless
// overridden.
func NewHunkExtractor(opts ...Option) *HunkExtractor {
	return &HunkExtractor{marker: buildOptions(opts).marker}
}

// section is the scanner state for one "diff --git" block.
type section struct {
	header     string
	cursor     int
	inHunk     bool
	pastMarker bool
	lines      []int
}

func (s *section) flush(set *domain.ChangedLineSet) {
	if s.header != "" && s.pastMarker {
		set.Put(s.header, s.lines)
	}
}

// Extract scans unified diff text and returns the changed lines per file
// header. Sections whose marker never matched contribute no entry.
func (e *HunkExtractor) Extract(text string) (domain.ChangedLineSet, error) {
	set := domain.NewChangedLineSet()
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var cur section
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if headerPattern.MatchString(line) {
			cur.flush(&set)
			cur = section{header: line}
		}

		if isHunkBoundary(line) {
			cur.inHunk = true
			cur.cursor = -1
		} else if cur.inHunk {
			cur.cursor++
		}

		if !cur.pastMarker && e.marker(line) {
			cur.pastMarker = true
		}

		if cur.pastMarker && cur.inHunk && strings.HasPrefix(line, "+") {
			cur.lines = append(cur.lines, cur.cursor)
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.ChangedLineSet{}, err
	}
	cur.flush(&set)
	return set, nil
}

// isHunkBoundary matches "@@ ... @@" lines. Headers followed by a function
// context ("@@ -1 +1 @@ func x") do not end with "@@" and are treated as
// ordinary lines.
func isHunkBoundary(line string) bool {
	return len(line) >= 2 && strings.HasPrefix(line, "@@") && strings.HasSuffix(line, "@@")
}

var _ application.LineExtractor = (*HunkExtractor)(nil)
