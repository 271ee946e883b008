// Package lcov implements a reader for LCOV tracefiles.
//
// Each SF: section becomes one record named after the source path without
// its extension. A line with hits and at least one untaken BRDA branch is
// partly covered.
package lcov

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
	"github.com/linebyline/covgate/internal/pathutil"
)

// Parser implements application.CoverageOpener for LCOV format.
type Parser struct{}

// New creates a new LCOV parser.
func New() *Parser {
	return &Parser{}
}

// Format returns the format this parser handles.
func (p *Parser) Format() application.Format {
	return application.FormatLCOV
}

type fileRecord struct {
	rec        *domain.ClassCoverage
	hits       map[int]int
	branchMiss map[int]bool
}

func (f *fileRecord) finish() {
	for nr, count := range f.hits {
		switch {
		case count <= 0:
			f.rec.SetLine(nr, domain.LineNotCovered)
		case f.branchMiss[nr]:
			f.rec.SetLine(nr, domain.LinePartlyCovered)
		default:
			f.rec.SetLine(nr, domain.LineFullyCovered)
		}
	}
	f.rec.LineCount = f.rec.CountLines()
}

// Open reads an LCOV file and returns one record per source file.
func (p *Parser) Open(path string) (application.CoverageReport, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	file, err := os.Open(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("open lcov file: %w", err)
	}
	defer file.Close()

	var records application.RecordList
	byName := make(map[string]*fileRecord)
	scanner := bufio.NewScanner(file)

	var current *fileRecord

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "SF:"):
			name := recordName(strings.TrimPrefix(line, "SF:"))
			current = byName[name]
			if current == nil {
				current = &fileRecord{
					rec:        domain.NewClassCoverage(name),
					hits:       make(map[int]int),
					branchMiss: make(map[int]bool),
				}
				byName[name] = current
				records = append(records, current.rec)
			}

		case strings.HasPrefix(line, "DA:") && current != nil:
			// DA:line_number,execution_count[,checksum]
			parts := strings.Split(strings.TrimPrefix(line, "DA:"), ",")
			if len(parts) < 2 {
				continue
			}
			nr, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			count, _ := strconv.Atoi(parts[1])
			current.hits[nr] += count

		case strings.HasPrefix(line, "BRDA:") && current != nil:
			// BRDA:line_number,block,branch,taken where taken is "-" when never evaluated
			parts := strings.Split(strings.TrimPrefix(line, "BRDA:"), ",")
			if len(parts) < 4 {
				continue
			}
			nr, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			if parts[3] == "-" || parts[3] == "0" {
				current.branchMiss[nr] = true
			}

		case line == "end_of_record":
			current = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lcov file: %w", err)
	}

	for _, f := range byName {
		f.finish()
	}
	return records, nil
}

func recordName(sf string) string {
	slashed := strings.ReplaceAll(strings.TrimSpace(sf), "\\", "/")
	return strings.TrimSuffix(slashed, path.Ext(slashed))
}
