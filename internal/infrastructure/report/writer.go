package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

type Writer struct{}

var _ application.Reporter = Writer{}

type jsonRule struct {
	Kind      domain.RuleKind `json:"kind"`
	Threshold float64         `json:"threshold"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
}

func (Writer) Write(w io.Writer, result application.Result, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		payload := struct {
			BaseRef      string                   `json:"baseRef,omitempty"`
			Rules        []jsonRule               `json:"rules"`
			ChangedFiles []string                 `json:"changedFiles"`
			ChangedLines int                      `json:"changedLines"`
			Files        []domain.CoverageSummary `json:"files,omitempty"`
			Summary      struct {
				Pass bool `json:"pass"`
			} `json:"summary"`
		}{
			BaseRef:      result.Report.BaseRef,
			Rules:        make([]jsonRule, 0, len(result.Report.Outcomes)),
			ChangedFiles: result.ChangedFiles,
			ChangedLines: result.ChangedLines,
			Files:        result.Summaries,
		}
		if payload.ChangedFiles == nil {
			payload.ChangedFiles = []string{}
		}
		for _, o := range result.Report.Outcomes {
			payload.Rules = append(payload.Rules, jsonRule{
				Kind:      o.Rule.Kind(),
				Threshold: o.Rule.Threshold().Value(),
				Success:   o.Result.Success(),
				Message:   o.Result.Message(),
			})
		}
		payload.Summary.Pass = result.Passed()
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case application.OutputMarkdown:
		return writeMarkdown(w, result)
	case application.OutputBrief:
		return writeBrief(w, result)
	case application.OutputText, "":
		return writeText(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func statusText(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func writeText(w io.Writer, result application.Result) error {
	colorize := colorEnabled(w)
	passStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))

	render := func(ok bool) string {
		status := statusText(ok)
		if !colorize {
			return status
		}
		if ok {
			return passStyle.Render(status)
		}
		return failStyle.Render(status)
	}

	header := fmt.Sprintf("Base: %s  Changed files: %d  Changed lines: %d",
		result.Report.BaseRef, len(result.ChangedFiles), result.ChangedLines)
	if colorize {
		header = mutedStyle.Render(header)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Rule\tRequired\tStatus")
	for _, o := range result.Report.Outcomes {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Rule.Kind(), o.Rule.Threshold(), render(o.Result.Success()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, o := range result.Report.Outcomes {
		fmt.Fprintf(w, "\n%s:\n", o.Rule.Kind())
		for _, line := range strings.Split(o.Result.Message(), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	fmt.Fprintf(w, "\n%s: %s\n", render(result.Passed()), result.Report.Summary())
	return nil
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// writeBrief outputs a single-line summary optimized for LLM/agent consumption.
// Format: STATUS | N/M rules passing | L changed lines in F files [| failing: KIND (>= T%), ...]
func writeBrief(w io.Writer, result application.Result) error {
	failed := result.Report.Failed()
	total := len(result.Report.Outcomes)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s | %d/%d rules passing | %d changed lines in %d files",
		statusText(result.Passed()), total-len(failed), total, result.ChangedLines, len(result.ChangedFiles)))

	if len(failed) > 0 {
		sb.WriteString(" | failing:")
		for i, o := range failed {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(fmt.Sprintf(" %s (>= %s)", o.Rule.Kind(), o.Rule.Threshold()))
		}
	}

	sb.WriteString("\n")
	_, err := w.Write([]byte(sb.String()))
	return err
}
