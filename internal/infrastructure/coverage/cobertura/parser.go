// Package cobertura reads Cobertura XML reports.
//
// Classes sharing a filename are merged into one record named after the
// filename without its extension.
package cobertura

import (
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
	"github.com/linebyline/covgate/internal/pathutil"
)

type coverage struct {
	XMLName  xml.Name `xml:"coverage"`
	Packages []pkg    `xml:"packages>package"`
	Sources  []string `xml:"sources>source"`
}

type pkg struct {
	Name    string  `xml:"name,attr"`
	Classes []class `xml:"classes>class"`
}

type class struct {
	Name     string   `xml:"name,attr"`
	Filename string   `xml:"filename,attr"`
	Lines    []line   `xml:"lines>line"`
	Methods  []method `xml:"methods>method"`
}

type method struct {
	Name  string `xml:"name,attr"`
	Lines []line `xml:"lines>line"`
}

type line struct {
	Number            int    `xml:"number,attr"`
	Hits              int    `xml:"hits,attr"`
	Branch            bool   `xml:"branch,attr"`
	ConditionCoverage string `xml:"condition-coverage,attr"`
}

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Format() application.Format {
	return application.FormatCobertura
}

func (p *Parser) Open(path string) (application.CoverageReport, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	file, err := os.Open(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("open cobertura file: %w", err)
	}
	defer file.Close()

	var cov coverage
	if err := xml.NewDecoder(file).Decode(&cov); err != nil {
		return nil, fmt.Errorf("decode cobertura xml: %w", err)
	}

	var records application.RecordList
	byName := make(map[string]*domain.ClassCoverage)

	for _, pkg := range cov.Packages {
		for _, cls := range pkg.Classes {
			if cls.Filename == "" {
				continue
			}
			name := recordName(cls.Filename)
			rec, ok := byName[name]
			if !ok {
				rec = domain.NewClassCoverage(name)
				byName[name] = rec
				records = append(records, rec)
			}

			for _, ln := range cls.Lines {
				rec.SetLine(ln.Number, lineStatus(ln))
			}
			for _, m := range cls.Methods {
				for _, ln := range m.Lines {
					rec.SetLine(ln.Number, lineStatus(ln))
				}
			}
		}
	}

	for _, rec := range byName {
		rec.LineCount = rec.CountLines()
	}
	return records, nil
}

func recordName(filename string) string {
	slashed := strings.ReplaceAll(filename, "\\", "/")
	return strings.TrimSuffix(slashed, path.Ext(slashed))
}

func lineStatus(ln line) domain.LineStatus {
	switch {
	case ln.Hits <= 0:
		return domain.LineNotCovered
	case ln.Branch && ln.ConditionCoverage != "" && !strings.HasPrefix(ln.ConditionCoverage, "100%"):
		return domain.LinePartlyCovered
	default:
		return domain.LineFullyCovered
	}
}
