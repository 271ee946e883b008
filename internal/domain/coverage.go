package domain

// LineStatus is the per-line classification reported by a coverage provider.
type LineStatus int

const (
	// LineEmpty marks a line with no executable code.
	LineEmpty LineStatus = iota
	LineNotCovered
	LinePartlyCovered
	LineFullyCovered
)

func (s LineStatus) String() string {
	switch s {
	case LineNotCovered:
		return "not-covered"
	case LinePartlyCovered:
		return "partly-covered"
	case LineFullyCovered:
		return "fully-covered"
	default:
		return "empty"
	}
}

// Counter holds covered and missed totals for one metric.
type Counter struct {
	Covered int `json:"covered"`
	Missed  int `json:"missed"`
}

// Total returns covered + missed.
func (c Counter) Total() int {
	return c.Covered + c.Missed
}

// Add returns the element-wise sum of two counters.
func (c Counter) Add(other Counter) Counter {
	return Counter{Covered: c.Covered + other.Covered, Missed: c.Missed + other.Missed}
}

// CoverageKind tells what a CoverageSummary was computed over.
type CoverageKind string

const (
	CoverageClass          CoverageKind = "CLASS"
	CoverageTotal          CoverageKind = "TOTAL"
	CoveragePerChangedLine CoverageKind = "PER_CHANGED_LINE"
)

// NotApplicable is the instruction counter value for PER_CHANGED_LINE summaries.
const NotApplicable = -1

// CoverageSummary is one (file, kind) coverage measurement.
// File is empty for CoverageTotal.
type CoverageSummary struct {
	File                string       `json:"file,omitempty"`
	Kind                CoverageKind `json:"kind"`
	LinesCovered        int          `json:"linesCovered"`
	LinesMissed         int          `json:"linesMissed"`
	InstructionsCovered int          `json:"instructionsCovered"`
	InstructionsMissed  int          `json:"instructionsMissed"`
}

// NewClassSummary builds a whole-file summary from provider counters.
func NewClassSummary(file string, lines, instructions Counter) CoverageSummary {
	return CoverageSummary{
		File:                file,
		Kind:                CoverageClass,
		LinesCovered:        lines.Covered,
		LinesMissed:         lines.Missed,
		InstructionsCovered: instructions.Covered,
		InstructionsMissed:  instructions.Missed,
	}
}

// NewChangedLineSummary builds a summary restricted to changed lines.
func NewChangedLineSummary(file string, lines Counter) CoverageSummary {
	return CoverageSummary{
		File:                file,
		Kind:                CoveragePerChangedLine,
		LinesCovered:        lines.Covered,
		LinesMissed:         lines.Missed,
		InstructionsCovered: NotApplicable,
		InstructionsMissed:  NotApplicable,
	}
}

// Lines returns the line counter of the summary.
func (s CoverageSummary) Lines() Counter {
	return Counter{Covered: s.LinesCovered, Missed: s.LinesMissed}
}

// Percent computes the line coverage percentage of the summary.
func (s CoverageSummary) Percent() (float64, error) {
	return CoveragePercentage(s.LinesCovered, s.LinesMissed)
}

// HasInstructions reports whether instruction counters are meaningful.
func (s CoverageSummary) HasInstructions() bool {
	return s.InstructionsCovered != NotApplicable && s.InstructionsMissed != NotApplicable
}

// ReduceLineStatus folds one line status into a counter. Partly covered lines
// count as missed; empty lines are skipped.
func ReduceLineStatus(c Counter, status LineStatus) Counter {
	switch status {
	case LineNotCovered, LinePartlyCovered:
		c.Missed++
	case LineFullyCovered:
		c.Covered++
	}
	return c
}

// ClassCoverage is one coverage record as read from a report: a class for
// JaCoCo, a source file for Cobertura and LCOV.
type ClassCoverage struct {
	ClassName        string
	Lines            map[int]LineStatus
	LineCount        Counter
	InstructionCount Counter
}

// NewClassCoverage creates an empty record.
func NewClassCoverage(name string) *ClassCoverage {
	return &ClassCoverage{ClassName: name, Lines: make(map[int]LineStatus)}
}

// Name returns the slash-separated record name without extension.
func (c *ClassCoverage) Name() string {
	return c.ClassName
}

// LineStatus returns the status of line n, LineEmpty when unknown.
func (c *ClassCoverage) LineStatus(n int) LineStatus {
	return c.Lines[n]
}

// LineCounter returns the aggregate line counter.
func (c *ClassCoverage) LineCounter() Counter {
	return c.LineCount
}

// InstructionCounter returns the aggregate instruction counter. Formats
// without instruction data report zero.
func (c *ClassCoverage) InstructionCounter() Counter {
	return c.InstructionCount
}

// SetLine records the status of line n. When a line is reported twice the
// better status wins.
func (c *ClassCoverage) SetLine(n int, s LineStatus) {
	if c.Lines == nil {
		c.Lines = make(map[int]LineStatus)
	}
	if s > c.Lines[n] {
		c.Lines[n] = s
	}
}

// CountLines derives the line counter from the recorded statuses. A line
// with any covered code counts as covered.
func (c *ClassCoverage) CountLines() Counter {
	var out Counter
	for _, s := range c.Lines {
		switch s {
		case LineNotCovered:
			out.Missed++
		case LinePartlyCovered, LineFullyCovered:
			out.Covered++
		}
	}
	return out
}
