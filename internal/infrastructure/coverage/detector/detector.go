// Package detector implements auto-detection for coverage report formats.
//
// The detector examines file content and extension to determine the
// appropriate reader for a coverage report.
package detector

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/pathutil"
)

// Detector detects coverage report formats from file content.
type Detector struct{}

// New creates a new format detector.
func New() *Detector {
	return &Detector{}
}

// DetectFormat examines file content to determine the coverage format.
// It uses content sniffing first, then falls back to extension-based detection.
func (d *Detector) DetectFormat(path string) (application.Format, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return application.FormatAuto, err
	}

	content, err := readHead(cleanPath, 4096)
	if err != nil {
		return application.FormatAuto, err
	}

	if format := d.detectFromContent(content); format != application.FormatAuto {
		return format, nil
	}

	return d.detectFromExtension(path), nil
}

func (d *Detector) detectFromContent(content []byte) application.Format {
	// JaCoCo first: its DOCTYPE and <report> root are unambiguous
	if isXML(content) && containsJaCoCoMarkers(content) {
		return application.FormatJaCoCo
	}

	if isXML(content) && containsCoberturaMarkers(content) {
		return application.FormatCobertura
	}

	if isLCOV(content) {
		return application.FormatLCOV
	}

	return application.FormatAuto
}

func (d *Detector) detectFromExtension(path string) application.Format {
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.ToLower(filepath.Base(path))

	switch {
	case ext == ".info" || base == "lcov.info" || base == "coverage.info":
		return application.FormatLCOV
	case base == "jacoco.xml" || strings.HasPrefix(base, "jacoco"):
		return application.FormatJaCoCo
	case base == "cobertura.xml" || base == "coverage.xml":
		return application.FormatCobertura
	}

	return application.FormatAuto
}

func isXML(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	return bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<"))
}

func containsCoberturaMarkers(content []byte) bool {
	return bytes.Contains(content, []byte("<coverage")) ||
		bytes.Contains(content, []byte("cobertura"))
}

func containsJaCoCoMarkers(content []byte) bool {
	lower := bytes.ToLower(content)
	return bytes.Contains(lower, []byte("<report")) &&
		(bytes.Contains(lower, []byte("jacoco")) || bytes.Contains(lower, []byte("<sessioninfo")))
}

func isLCOV(content []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	var hasSF, hasDA bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "SF:") {
			hasSF = true
		}
		if strings.HasPrefix(line, "DA:") {
			hasDA = true
		}
		if hasSF && hasDA {
			return true
		}
	}

	return false
}

func readHead(path string, n int) ([]byte, error) {
	file, err := os.Open(path) // #nosec G304 - path is validated by caller
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, n)
	nRead, err := file.Read(buf)
	// Empty files are valid, just return what we got
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return buf[:nRead], nil
}
