// Package jacoco reads JaCoCo XML reports (report.dtd 1.1).
//
// Every <class> element becomes one record named after the class
// ("com/acme/Foo"). Per-line status comes from the <sourcefile> element the
// class declares through its sourcefilename attribute.
//
// The report keeps line data per source file, not per class, so nested and
// anonymous classes ("com/acme/Foo$Inner") carry every line of their source
// file, and so does the outer class. Counters stay per class. Only records
// whose name maps to a source path are correlated, which is the outer class.
package jacoco

import (
	"encoding/xml"
	"fmt"
	"os"
	"path"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
	"github.com/linebyline/covgate/internal/pathutil"
)

type report struct {
	XMLName  xml.Name `xml:"report"`
	Name     string   `xml:"name,attr"`
	Groups   []group  `xml:"group"`
	Packages []pkg    `xml:"package"`
}

type group struct {
	Name     string  `xml:"name,attr"`
	Groups   []group `xml:"group"`
	Packages []pkg   `xml:"package"`
}

type pkg struct {
	Name        string       `xml:"name,attr"`
	Classes     []class      `xml:"class"`
	SourceFiles []sourceFile `xml:"sourcefile"`
}

type class struct {
	Name           string    `xml:"name,attr"`
	SourceFilename string    `xml:"sourcefilename,attr"`
	Counters       []counter `xml:"counter"`
}

type sourceFile struct {
	Name  string `xml:"name,attr"`
	Lines []line `xml:"line"`
}

type line struct {
	Nr int `xml:"nr,attr"`
	MI int `xml:"mi,attr"`
	CI int `xml:"ci,attr"`
	MB int `xml:"mb,attr"`
	CB int `xml:"cb,attr"`
}

type counter struct {
	Type    string `xml:"type,attr"`
	Missed  int    `xml:"missed,attr"`
	Covered int    `xml:"covered,attr"`
}

// Parser implements application.CoverageOpener for JaCoCo XML.
type Parser struct{}

// New creates a new JaCoCo parser.
func New() *Parser {
	return &Parser{}
}

// Format returns the format this parser handles.
func (p *Parser) Format() application.Format {
	return application.FormatJaCoCo
}

// Open decodes the report at path.
func (p *Parser) Open(path string) (application.CoverageReport, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	file, err := os.Open(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("open jacoco file: %w", err)
	}
	defer file.Close()

	var rep report
	if err := xml.NewDecoder(file).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode jacoco xml: %w", err)
	}

	var records application.RecordList
	for _, pk := range collectPackages(rep.Packages, rep.Groups) {
		records = append(records, packageRecords(pk)...)
	}
	return records, nil
}

func collectPackages(pkgs []pkg, groups []group) []pkg {
	out := append([]pkg(nil), pkgs...)
	for _, g := range groups {
		out = append(out, collectPackages(g.Packages, g.Groups)...)
	}
	return out
}

func packageRecords(pk pkg) []application.CoverageRecord {
	sources := make(map[string]sourceFile, len(pk.SourceFiles))
	for _, sf := range pk.SourceFiles {
		sources[sf.Name] = sf
	}

	records := make([]application.CoverageRecord, 0, len(pk.Classes))
	for _, cls := range pk.Classes {
		rec := domain.NewClassCoverage(cls.Name)
		for _, c := range cls.Counters {
			switch c.Type {
			case "LINE":
				rec.LineCount = domain.Counter{Covered: c.Covered, Missed: c.Missed}
			case "INSTRUCTION":
				rec.InstructionCount = domain.Counter{Covered: c.Covered, Missed: c.Missed}
			}
		}
		if sf, ok := sources[sourceName(cls)]; ok {
			for _, ln := range sf.Lines {
				rec.SetLine(ln.Nr, lineStatus(ln))
			}
		}
		records = append(records, rec)
	}
	return records
}

func sourceName(cls class) string {
	if cls.SourceFilename != "" {
		return cls.SourceFilename
	}
	return path.Base(cls.Name) + ".java"
}

// lineStatus follows JaCoCo's ICounter status: nothing covered is
// not-covered, everything covered (instructions and branches) is
// fully-covered, anything else is partly-covered.
func lineStatus(ln line) domain.LineStatus {
	switch {
	case ln.MI == 0 && ln.CI == 0:
		return domain.LineEmpty
	case ln.CI == 0:
		return domain.LineNotCovered
	case ln.MI == 0 && ln.MB == 0:
		return domain.LineFullyCovered
	default:
		return domain.LinePartlyCovered
	}
}
