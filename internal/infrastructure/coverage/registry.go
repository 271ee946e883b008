// Package coverage opens coverage reports of any supported format.
package coverage

import (
	"fmt"
	"sort"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
	"github.com/linebyline/covgate/internal/infrastructure/coverage/cobertura"
	"github.com/linebyline/covgate/internal/infrastructure/coverage/detector"
	"github.com/linebyline/covgate/internal/infrastructure/coverage/jacoco"
	"github.com/linebyline/covgate/internal/infrastructure/coverage/lcov"
)

// Registry selects a reader by configured or detected format.
type Registry struct {
	detector *detector.Detector
	readers  map[application.Format]application.CoverageOpener
	format   application.Format
}

// NewRegistry creates a registry. FormatAuto or "" enables content sniffing.
func NewRegistry(format application.Format) *Registry {
	if format == "" {
		format = application.FormatAuto
	}
	return &Registry{
		detector: detector.New(),
		readers: map[application.Format]application.CoverageOpener{
			application.FormatJaCoCo:    jacoco.New(),
			application.FormatCobertura: cobertura.New(),
			application.FormatLCOV:      lcov.New(),
		},
		format: format,
	}
}

// Format returns the configured format.
func (r *Registry) Format() application.Format {
	return r.format
}

// Open reads the report at path. Any failure is a
// *domain.CoverageReportUnreadableError.
func (r *Registry) Open(path string) (application.CoverageReport, error) {
	format := r.format
	if format == application.FormatAuto {
		detected, err := r.detector.DetectFormat(path)
		if err != nil {
			return nil, &domain.CoverageReportUnreadableError{Path: path, Err: fmt.Errorf("detect format: %w", err)}
		}
		format = detected
	}

	reader, ok := r.readers[format]
	if !ok {
		return nil, &domain.CoverageReportUnreadableError{Path: path, Err: fmt.Errorf("unsupported format: %s", format)}
	}

	report, err := reader.Open(path)
	if err != nil {
		return nil, &domain.CoverageReportUnreadableError{Path: path, Err: err}
	}
	return report, nil
}

// SupportedFormats lists the formats with a reader, sorted.
func (r *Registry) SupportedFormats() []application.Format {
	formats := make([]application.Format, 0, len(r.readers))
	for format := range r.readers {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Detector exposes the format and layout detector.
func (r *Registry) Detector() *detector.Detector {
	return r.detector
}

var _ application.CoverageOpener = (*Registry)(nil)
