package application

import (
	"os"
	"path"
	"path/filepath"

	"github.com/linebyline/covgate/internal/domain"
	"github.com/linebyline/covgate/internal/pathutil"
)

// Correlator joins coverage records to changed source files.
//
// A record named "com/acme/Foo" is the source file
// "<sourceRoot>/com/acme/Foo<ext>" for every configured source root.
type Correlator struct {
	Records     []CoverageRecord
	SourceRoots []string
	BaseDir     string
	ClassesDir  string
	Extension   string
}

// NewCorrelator builds a correlator over the records of report.
func NewCorrelator(report CoverageReport, cfg Config) *Correlator {
	ext := cfg.Coverage.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	var records []CoverageRecord
	if report != nil {
		records = report.Records()
	}
	return &Correlator{
		Records:     records,
		SourceRoots: cfg.SourceRoots,
		BaseDir:     cfg.BaseDir,
		ClassesDir:  cfg.Coverage.ClassesDir,
		Extension:   ext,
	}
}

type match struct {
	file   string
	record CoverageRecord
}

// WholeFileCoverage returns one CLASS summary per changed file with a record.
func (c *Correlator) WholeFileCoverage(files []string) []domain.CoverageSummary {
	matches := c.match(files)
	out := make([]domain.CoverageSummary, 0, len(matches))
	for _, m := range matches {
		out = append(out, domain.NewClassSummary(m.file, m.record.LineCounter(), m.record.InstructionCounter()))
	}
	return out
}

// ChangedLineCoverage returns one PER_CHANGED_LINE summary per changed file
// that has both a record and an entry in lines.
func (c *Correlator) ChangedLineCoverage(files []string, lines domain.ChangedLineSet) []domain.CoverageSummary {
	var out []domain.CoverageSummary
	for _, m := range c.match(files) {
		changed, ok := lines.LinesForPath(m.record.Name())
		if !ok {
			continue
		}
		var counter domain.Counter
		for _, n := range changed {
			counter = domain.ReduceLineStatus(counter, m.record.LineStatus(n))
		}
		out = append(out, domain.NewChangedLineSummary(m.file, counter))
	}
	return out
}

// TotalCoverage sums the counters of every record in the report.
func (c *Correlator) TotalCoverage() domain.CoverageSummary {
	var lines, instructions domain.Counter
	for _, r := range c.Records {
		if !c.compiled(r) {
			continue
		}
		lines = lines.Add(r.LineCounter())
		instructions = instructions.Add(r.InstructionCounter())
	}
	total := domain.NewClassSummary("", lines, instructions)
	total.Kind = domain.CoverageTotal
	return total
}

// match walks source roots in configuration order and records in report
// order. A source file is reported once even if several roots resolve to it.
func (c *Correlator) match(files []string) []match {
	changed := make(map[string]struct{}, len(files))
	for _, f := range files {
		changed[pathutil.Slash(f)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []match
	for _, root := range c.SourceRoots {
		for _, r := range c.Records {
			candidate := path.Clean(filepath.ToSlash(root) + "/" + r.Name() + c.Extension)
			if _, dup := seen[candidate]; dup {
				continue
			}
			if !c.changed(changed, candidate) || !c.compiled(r) {
				continue
			}
			seen[candidate] = struct{}{}
			out = append(out, match{file: candidate, record: r})
		}
	}
	return out
}

func (c *Correlator) changed(set map[string]struct{}, candidate string) bool {
	if _, ok := set[candidate]; ok {
		return true
	}
	if c.BaseDir == "" {
		return false
	}
	rel := pathutil.Rel(c.BaseDir, candidate)
	_, ok := set[rel]
	return ok
}

// compiled reports whether the record has a class file under ClassesDir.
// Without ClassesDir every record counts.
func (c *Correlator) compiled(r CoverageRecord) bool {
	if c.ClassesDir == "" {
		return true
	}
	dir := pathutil.Resolve(c.BaseDir, c.ClassesDir)
	info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(r.Name())+".class"))
	return err == nil && !info.IsDir()
}
