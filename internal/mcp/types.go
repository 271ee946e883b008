// Package mcp exposes covgate checks to agents over the Model Context Protocol.
package mcp

import (
	"context"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

// Service defines the application operations needed by MCP.
// This interface allows for easy mocking in tests.
type Service interface {
	// Tools
	CheckResult(ctx context.Context, opts application.CheckOptions) (application.Result, application.Config, error)
	ChangedLines(ctx context.Context, opts application.LinesOptions) (domain.ChangedLineSet, error)

	// Resources (read-only queries)
	History(ctx context.Context, opts application.HistoryOptions) (application.HistoryResult, error)
	Detect(ctx context.Context) (application.Config, error)
}

// Config holds MCP server configuration.
type Config struct {
	ConfigPath string // Path to .covgate.yaml (default: ".covgate.yaml")
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() Config {
	return Config{
		ConfigPath: ".covgate.yaml",
	}
}

// CheckInput defines the input parameters for the check tool.
type CheckInput struct {
	ConfigPath  string `json:"configPath,omitempty" jsonschema:"Path to the .covgate.yaml config file"`
	Report      string `json:"report,omitempty" jsonschema:"Coverage report path overriding the config"`
	BaseRef     string `json:"baseRef,omitempty" jsonschema:"Git ref the change is compared against"`
	FailOnError *bool  `json:"failOnError,omitempty" jsonschema:"Fail rules whose coverage cannot be calculated"`
}

// LinesInput defines the input parameters for the lines tool.
type LinesInput struct {
	ConfigPath string `json:"configPath,omitempty" jsonschema:"Path to the .covgate.yaml config file"`
	BaseRef    string `json:"baseRef,omitempty" jsonschema:"Git ref the change is compared against"`
}

// RuleOutput is the verdict of one rule.
type RuleOutput struct {
	Kind      string  `json:"kind"`
	Threshold float64 `json:"threshold"`
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
}

// ToolOutput is the output of the check tool.
type ToolOutput struct {
	Passed       bool         `json:"passed"`
	Summary      string       `json:"summary,omitempty"`
	Rules        []RuleOutput `json:"rules,omitempty"`
	ChangedFiles []string     `json:"changedFiles,omitempty"`
	ChangedLines int          `json:"changedLines"`
	Error        string       `json:"error,omitempty"`
}

// FileLines is the changed lines of one diff section.
type FileLines struct {
	Header string `json:"header"`
	Lines  []int  `json:"lines"`
}

// LinesOutput is the output of the lines tool.
type LinesOutput struct {
	Files []FileLines `json:"files"`
	Total int         `json:"total"`
	Error string      `json:"error,omitempty"`
}

// coalesce returns value if non-empty, otherwise fallback.
func coalesce(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
