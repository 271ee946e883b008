package diff

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

// AbsoluteExtractor reports added lines by their line number in the new
// version of the file. Keys use the same "diff --git a/x b/y" header form as
// HunkExtractor so lookups by path behave identically.
type AbsoluteExtractor struct {
	marker Marker
}

// NewAbsoluteExtractor creates an extractor using the default marker unless
// overridden.
func NewAbsoluteExtractor(opts ...Option) *AbsoluteExtractor {
	return &AbsoluteExtractor{marker: buildOptions(opts).marker}
}

// Extract parses text with go-gitdiff. Deleted and binary files are skipped.
func (e *AbsoluteExtractor) Extract(text string) (domain.ChangedLineSet, error) {
	set := domain.NewChangedLineSet()
	if strings.TrimSpace(text) == "" {
		return set, nil
	}
	files, _, err := gitdiff.Parse(strings.NewReader(text))
	if err != nil {
		return domain.ChangedLineSet{}, fmt.Errorf("parsing diff: %w", err)
	}

	for _, f := range files {
		if f.IsDelete || f.IsBinary {
			continue
		}
		header := fileHeader(f)
		pastMarker := e.marker(header)
		var lines []int
		for _, frag := range f.TextFragments {
			newLine := int(frag.NewPosition)
			if !pastMarker && e.marker(frag.Header()) {
				pastMarker = true
			}
			for _, l := range frag.Lines {
				content := l.Op.String() + strings.TrimSuffix(l.Line, "\n")
				if !pastMarker && e.marker(content) {
					pastMarker = true
				}
				switch l.Op {
				case gitdiff.OpAdd:
					if pastMarker {
						lines = append(lines, newLine)
					}
					newLine++
				case gitdiff.OpContext:
					newLine++
				}
			}
		}
		if pastMarker {
			set.Put(header, lines)
		}
	}
	return set, nil
}

func fileHeader(f *gitdiff.File) string {
	oldName, newName := f.OldName, f.NewName
	if oldName == "" {
		oldName = newName
	}
	return fmt.Sprintf("diff --git a/%s b/%s", oldName, newName)
}

var _ application.LineExtractor = (*AbsoluteExtractor)(nil)
