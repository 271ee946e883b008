package diff

import (
	"fmt"
	"strings"

	"github.com/linebyline/covgate/internal/application"
)

// Extraction modes accepted by NewExtractor.
const (
	ModeHunk     = "hunk"
	ModeAbsolute = "absolute"
)

// NewExtractor returns the extractor for mode. An empty mode selects ModeHunk.
func NewExtractor(mode string, opts ...Option) (application.LineExtractor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeHunk:
		return NewHunkExtractor(opts...), nil
	case ModeAbsolute:
		return NewAbsoluteExtractor(opts...), nil
	default:
		return nil, fmt.Errorf("unknown diff mode %q (want %s or %s)", mode, ModeHunk, ModeAbsolute)
	}
}
