package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linebyline/covgate/internal/changeset"
	"github.com/linebyline/covgate/internal/domain"
	"github.com/linebyline/covgate/internal/pathutil"
	"github.com/samber/lo"
)

// Rule messages. Percentages are rendered with domain.FormatPercent.
const (
	msgNoChangedFiles = "No changed files found. No coverage to check."
	msgNoChangedLines = "No changed lines found. No coverage to check."

	msgOverallError      = "Unable to calculate the overall coverage: "
	msgChangedLinesError = "Unable to calculate the coverage of the changed lines: "

	msgSufficient = "The following classes are sufficiently covered: \n"
	msgErrored    = "The following classes had an error while calculating the coverage: \n"
	msgErrorEntry = "%s with the following error: %s\n"
	msgNone       = "None\n"
)

// Evaluator runs coverage rules against one diff and one coverage report.
type Evaluator struct {
	Changes  ChangeSource
	Lines    LineExtractor
	Coverage CoverageOpener
}

// RunChecks evaluates every rule of registry in registration order.
// Only fatal errors (diff unavailable, report unreadable, bad filters) are
// returned; calculation problems become part of a rule's message.
func (e *Evaluator) RunChecks(ctx context.Context, registry *domain.RuleRegistry, cfg Config) (domain.Report, error) {
	result, err := e.Evaluate(ctx, registry, cfg)
	if err != nil {
		return domain.Report{}, err
	}
	return result.Report, nil
}

// Evaluate is RunChecks plus the intermediate data reporters display.
func (e *Evaluator) Evaluate(ctx context.Context, registry *domain.RuleRegistry, cfg Config) (Result, error) {
	if registry == nil {
		return Result{}, domain.ErrNilRule
	}
	filters, err := changeset.Build(cfg.BaseDir, cfg.Filters, cfg.Exclude)
	if err != nil {
		return Result{}, fmt.Errorf("build filters: %w", err)
	}

	reportPath := pathutil.Resolve(cfg.BaseDir, cfg.Coverage.Report)
	report, err := e.Coverage.Open(reportPath)
	if err != nil {
		return Result{}, err
	}
	slog.Debug("Opened coverage report", "path", reportPath, "records", len(report.Records()))

	rc := &runContext{
		ctx:        ctx,
		ref:        cfg.BaseRef,
		changes:    e.Changes,
		extractor:  e.Lines,
		filters:    filters,
		correlator: NewCorrelator(report, cfg),
	}

	out := Result{Report: domain.Report{BaseRef: cfg.BaseRef}}
	for _, rule := range registry.Rules() {
		verdict, err := rc.evaluate(rule, cfg.FailOnError)
		if err != nil {
			return Result{}, err
		}
		slog.Debug("Evaluated rule", "kind", rule.Kind(), "threshold", rule.Threshold().Value(), "success", verdict.Success())
		out.Report.Outcomes = append(out.Report.Outcomes, domain.RuleOutcome{Rule: rule, Result: verdict})
	}

	out.ChangedFiles = rc.files
	if rc.linesLoaded {
		out.ChangedLines = rc.lines.TotalLines()
	}
	out.Summaries = append(out.Summaries, rc.wholeFile...)
	out.Summaries = append(out.Summaries, rc.lineCoverage...)
	return out, nil
}

// runContext caches the changed files, changed lines and changed-line
// coverage of one run. Each is computed at most once, in that order, and a
// failure is remembered.
type runContext struct {
	ctx        context.Context
	ref        string
	changes    ChangeSource
	extractor  LineExtractor
	filters    *changeset.Filters
	correlator *Correlator

	files       []string
	filesLoaded bool

	lines       domain.ChangedLineSet
	linesLoaded bool

	lineCoverage    []domain.CoverageSummary
	coverageLoaded  bool
	wholeFile       []domain.CoverageSummary
	wholeFileLoaded bool

	err error
}

func (rc *runContext) changedFiles() ([]string, error) {
	if rc.err != nil {
		return nil, rc.err
	}
	if rc.filesLoaded {
		return rc.files, nil
	}
	files, err := rc.changes.ChangedFiles(rc.ctx, rc.ref)
	if err != nil {
		rc.err = err
		return nil, err
	}
	rc.files = changeset.Filter(files, rc.filters)
	rc.filesLoaded = true
	slog.Debug("Resolved changed files", "ref", rc.ref, "changed", len(files), "selected", len(rc.files))
	return rc.files, nil
}

func (rc *runContext) changedLines() (domain.ChangedLineSet, error) {
	if _, err := rc.changedFiles(); err != nil {
		return domain.ChangedLineSet{}, err
	}
	if rc.linesLoaded {
		return rc.lines, nil
	}
	text, err := rc.changes.DiffText(rc.ctx, rc.ref)
	if err != nil {
		rc.err = err
		return domain.ChangedLineSet{}, err
	}
	lines, err := rc.extractor.Extract(text)
	if err != nil {
		rc.err = fmt.Errorf("extract changed lines: %w", err)
		return domain.ChangedLineSet{}, rc.err
	}
	rc.lines = lines
	rc.linesLoaded = true
	slog.Debug("Extracted changed lines", "files", lines.Len(), "lines", lines.TotalLines())
	return rc.lines, nil
}

func (rc *runContext) changedLineCoverage() ([]domain.CoverageSummary, error) {
	lines, err := rc.changedLines()
	if err != nil {
		return nil, err
	}
	if rc.coverageLoaded {
		return rc.lineCoverage, nil
	}
	rc.lineCoverage = rc.correlator.ChangedLineCoverage(rc.files, lines)
	rc.coverageLoaded = true
	slog.Debug("Correlated changed lines", "records", len(rc.lineCoverage))
	return rc.lineCoverage, nil
}

func (rc *runContext) wholeFileCoverage() ([]domain.CoverageSummary, error) {
	files, err := rc.changedFiles()
	if err != nil {
		return nil, err
	}
	if !rc.wholeFileLoaded {
		rc.wholeFile = rc.correlator.WholeFileCoverage(files)
		rc.wholeFileLoaded = true
	}
	return rc.wholeFile, nil
}

func (rc *runContext) evaluate(rule domain.Rule, failOnError bool) (domain.RuleValidationResult, error) {
	files, err := rc.changedFiles()
	if err != nil {
		return domain.RuleValidationResult{}, err
	}
	if len(files) == 0 {
		return domain.NewRuleValidationResult(true, msgNoChangedFiles), nil
	}

	threshold := rule.Threshold().Value()
	switch rule.Kind() {
	case domain.RuleOverall:
		return overallResult(rc.correlator.TotalCoverage(), threshold, failOnError), nil

	case domain.RulePerClass:
		summaries, err := rc.wholeFileCoverage()
		if err != nil {
			return domain.RuleValidationResult{}, err
		}
		return perFileResult(summaries, threshold, failOnError, perClassText), nil

	case domain.RuleTotalChangedLines, domain.RulePerClassChangedLines:
		summaries, err := rc.changedLineCoverage()
		if err != nil {
			return domain.RuleValidationResult{}, err
		}
		if len(summaries) == 0 {
			return domain.NewRuleValidationResult(true, msgNoChangedLines), nil
		}
		if rule.Kind() == domain.RuleTotalChangedLines {
			return totalChangedLinesResult(summaries, threshold, failOnError), nil
		}
		return perFileResult(summaries, threshold, failOnError, perClassChangedLinesText), nil
	}
	return domain.RuleValidationResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownRuleKind, rule.Kind())
}

func overallResult(total domain.CoverageSummary, threshold float64, failOnError bool) domain.RuleValidationResult {
	actual, err := total.Percent()
	if err != nil {
		return domain.NewRuleValidationResult(!failOnError, msgOverallError+err.Error())
	}
	return comparison("overall coverage", actual, threshold)
}

func totalChangedLinesResult(summaries []domain.CoverageSummary, threshold float64, failOnError bool) domain.RuleValidationResult {
	sum := lo.Reduce(summaries, func(acc domain.Counter, s domain.CoverageSummary, _ int) domain.Counter {
		return acc.Add(s.Lines())
	}, domain.Counter{})
	actual, err := domain.CoveragePercentage(sum.Covered, sum.Missed)
	if err != nil {
		return domain.NewRuleValidationResult(!failOnError, msgChangedLinesError+err.Error())
	}
	return comparison("overall coverage of the changed lines", actual, threshold)
}

func comparison(subject string, actual, threshold float64) domain.RuleValidationResult {
	success := actual >= threshold
	direction := "above"
	if !success {
		direction = "below"
	}
	msg := fmt.Sprintf("The %s is %s the required percentage. Required: %s%% Actual: %s%%",
		subject, direction, domain.FormatPercent(threshold), domain.FormatPercent(actual))
	return domain.NewRuleValidationResult(success, msg)
}

// perFileText holds the wording that differs between the two per-file kinds.
type perFileText struct {
	pass         string
	fail         string
	insufficient string
	entry        string
}

var perClassText = perFileText{
	pass:         "All the changed classes meet the required coverage of %s%% per class. \n",
	fail:         "The changed classes do not meet the overall required coverage of %s%%: \n",
	insufficient: "The following classes are not sufficiently covered: \n",
	entry:        "%s with an overall coverage of %s%%\n",
}

var perClassChangedLinesText = perFileText{
	pass:         "All the changed lines meet the required coverage of %s%% per class. \n",
	fail:         "The changed lines do not meet the required coverage of %s%% per class: \n",
	insufficient: "The following classes were changed but those changes are not sufficiently covered: \n",
	entry:        "%s with a coverage of the changed lines of %s%%\n",
}

type fileVerdict struct {
	file    string
	percent float64
	err     error
}

// partition splits summaries into insufficient, sufficient and errored,
// each in input order.
func partition(summaries []domain.CoverageSummary, threshold float64) (insufficient, sufficient, errored []fileVerdict) {
	for _, s := range summaries {
		pct, err := s.Percent()
		v := fileVerdict{file: s.File, percent: pct, err: err}
		switch {
		case err != nil:
			errored = append(errored, v)
		case pct < threshold:
			insufficient = append(insufficient, v)
		default:
			sufficient = append(sufficient, v)
		}
	}
	return insufficient, sufficient, errored
}

func perFileResult(summaries []domain.CoverageSummary, threshold float64, failOnError bool, text perFileText) domain.RuleValidationResult {
	insufficient, sufficient, errored := partition(summaries, threshold)
	success := domain.FinalSuccess(len(insufficient) == 0, failOnError, len(errored) > 0)

	var b strings.Builder
	required := domain.FormatPercent(threshold)
	if success {
		fmt.Fprintf(&b, text.pass, required)
	} else {
		fmt.Fprintf(&b, text.fail, required)
	}

	b.WriteString(text.insufficient)
	writeEntries(&b, insufficient, text.entry)
	b.WriteString(msgSufficient)
	writeEntries(&b, sufficient, text.entry)

	if len(errored) > 0 {
		b.WriteString(msgErrored)
		for _, v := range errored {
			fmt.Fprintf(&b, msgErrorEntry, v.file, msgChangedLinesError+v.err.Error())
		}
	}
	return domain.NewRuleValidationResult(success, strings.TrimRight(b.String(), "\n"))
}

func writeEntries(b *strings.Builder, entries []fileVerdict, format string) {
	if len(entries) == 0 {
		b.WriteString(msgNone)
		return
	}
	for _, v := range entries {
		fmt.Fprintf(b, format, v.file, domain.FormatPercent(v.percent))
	}
}
