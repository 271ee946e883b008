package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/linebyline/covgate/internal/application"
)

// handleCheck implements the check tool. Evaluation errors are reported in
// the output rather than as protocol errors.
func (s *Server) handleCheck(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CheckInput,
) (*mcp.CallToolResult, ToolOutput, error) {
	opts := application.CheckOptions{
		ConfigPath:  coalesce(input.ConfigPath, s.config.ConfigPath),
		Output:      application.OutputJSON,
		Report:      input.Report,
		BaseRef:     input.BaseRef,
		FailOnError: input.FailOnError,
	}

	result, _, err := s.svc.CheckResult(ctx, opts)
	if err != nil {
		return nil, ToolOutput{Passed: false, Error: err.Error(), Summary: "Check could not run"}, nil
	}

	output := ToolOutput{
		Passed:       result.Passed(),
		Rules:        make([]RuleOutput, 0, len(result.Report.Outcomes)),
		ChangedFiles: result.ChangedFiles,
		ChangedLines: result.ChangedLines,
		Summary:      generateSummary(result),
	}
	for _, o := range result.Report.Outcomes {
		output.Rules = append(output.Rules, RuleOutput{
			Kind:      string(o.Rule.Kind()),
			Threshold: o.Rule.Threshold().Value(),
			Success:   o.Result.Success(),
			Message:   o.Result.Message(),
		})
	}
	return nil, output, nil
}

// handleLines implements the lines tool.
func (s *Server) handleLines(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input LinesInput,
) (*mcp.CallToolResult, LinesOutput, error) {
	set, err := s.svc.ChangedLines(ctx, application.LinesOptions{
		ConfigPath: coalesce(input.ConfigPath, s.config.ConfigPath),
		BaseRef:    input.BaseRef,
	})
	if err != nil {
		return nil, LinesOutput{Files: []FileLines{}, Error: err.Error()}, nil
	}

	output := LinesOutput{Files: make([]FileLines, 0, set.Len()), Total: set.TotalLines()}
	for _, header := range set.Headers() {
		lines, _ := set.Lines(header)
		output.Files = append(output.Files, FileLines{Header: header, Lines: lines})
	}
	return nil, output, nil
}

// generateSummary creates a one-line summary from the result.
func generateSummary(result application.Result) string {
	total := len(result.Report.Outcomes)
	passing := total - len(result.Report.Failed())
	status := "PASS"
	if !result.Passed() {
		status = "FAIL"
	}
	return fmt.Sprintf("%s | %d/%d rules passing | %d changed lines in %d files",
		status, passing, total, result.ChangedLines, len(result.ChangedFiles))
}
