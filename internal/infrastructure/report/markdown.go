package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

// writeMarkdown renders the PR/MR comment body. The first line is
// application.CommentMarker so later runs can find and update the comment.
func writeMarkdown(w io.Writer, result application.Result) error {
	var sb strings.Builder
	sb.WriteString(application.CommentMarker + "\n")

	icon, verdict := ":white_check_mark:", "passed"
	if !result.Passed() {
		icon, verdict = ":x:", "failed"
	}
	sb.WriteString(fmt.Sprintf("## %s Changed-line coverage %s\n\n", icon, verdict))
	sb.WriteString(fmt.Sprintf("Compared against `%s`: %d changed files, %d changed lines.\n\n",
		result.Report.BaseRef, len(result.ChangedFiles), result.ChangedLines))

	sb.WriteString("| Rule | Required | Status |\n")
	sb.WriteString("|------|----------|--------|\n")
	for _, o := range result.Report.Outcomes {
		status := ":white_check_mark:"
		if !o.Result.Success() {
			status = ":x:"
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", o.Rule.Kind(), o.Rule.Threshold(), status))
	}

	if files := changedLineRows(result.Summaries); len(files) > 0 {
		sb.WriteString("\n| File | Covered | Missed | Coverage |\n")
		sb.WriteString("|------|---------|--------|----------|\n")
		for _, row := range files {
			sb.WriteString(row)
		}
	}

	if len(result.Report.Outcomes) > 0 {
		sb.WriteString("\n<details>\n<summary>Details</summary>\n\n")
		for _, o := range result.Report.Outcomes {
			sb.WriteString(fmt.Sprintf("**%s**\n\n```\n%s\n```\n\n", o.Rule.Kind(), o.Result.Message()))
		}
		sb.WriteString("</details>\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func changedLineRows(summaries []domain.CoverageSummary) []string {
	var rows []string
	for _, s := range summaries {
		if s.Kind != domain.CoveragePerChangedLine {
			continue
		}
		pct := "n/a"
		if p, err := s.Percent(); err == nil {
			pct = domain.FormatPercent(p) + "%"
		}
		rows = append(rows, fmt.Sprintf("| `%s` | %d | %d | %s |\n", s.File, s.LinesCovered, s.LinesMissed, pct))
	}
	return rows
}
