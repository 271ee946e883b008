package application

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/linebyline/covgate/internal/changeset"
	"github.com/linebyline/covgate/internal/domain"
)

type OutputFormat string

const (
	OutputText     OutputFormat = "text"
	OutputJSON     OutputFormat = "json"
	OutputBrief    OutputFormat = "brief"
	OutputMarkdown OutputFormat = "markdown"
)

// Format represents a coverage report format.
type Format string

const (
	// FormatAuto detects the format from the report content.
	FormatAuto Format = "auto"
	// FormatJaCoCo is the JaCoCo XML report format.
	FormatJaCoCo Format = "jacoco"
	// FormatCobertura is the Cobertura XML report format.
	FormatCobertura Format = "cobertura"
	// FormatLCOV is the LCOV tracefile format.
	FormatLCOV Format = "lcov"
)

var (
	ErrConfigNotFound = errors.New("config not found")
	// ErrInvalidConfig marks configuration that cannot be turned into rules.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrRulesFailed is returned by Check when at least one rule did not pass.
	ErrRulesFailed = errors.New("coverage rules failed")
)

// Defaults applied when configuration leaves a field empty.
const (
	DefaultBaseRef     = "origin/main"
	DefaultExtension   = ".java"
	DefaultMarker      = "class"
	DefaultHistoryPath = ".covgate/history.json"
)

// Config represents validated, application-ready configuration.
type Config struct {
	Version     int
	Coverage    CoverageConfig
	SourceRoots []string
	BaseDir     string
	BaseRef     string
	FailOnError bool
	Rules       []domain.Rule
	Exclude     []string
	Filters     changeset.Spec
	Diff        DiffConfig
	History     HistoryConfig
	Log         LogConfig
}

// CoverageConfig locates the coverage report of the last test run.
type CoverageConfig struct {
	Report     string
	Format     Format
	ClassesDir string // records without a compiled class here are ignored
	Extension  string // appended to record names to build source paths
}

// DiffConfig selects how changed lines are numbered.
type DiffConfig struct {
	Mode   string // "hunk" (default) or "absolute"
	Marker string // empty disables marker gating
}

type HistoryConfig struct {
	Enabled bool
	Path    string
}

type LogConfig struct {
	Level  string
	Format string
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Version:     1,
		Coverage:    CoverageConfig{Format: FormatAuto, Extension: DefaultExtension},
		SourceRoots: []string{"src/main/java"},
		BaseRef:     DefaultBaseRef,
		Rules: []domain.Rule{
			domain.MustRule(domain.RuleTotalChangedLines, 80),
		},
		Diff:    DiffConfig{Mode: "hunk", Marker: DefaultMarker},
		History: HistoryConfig{Path: DefaultHistoryPath},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Registry registers the configured rules in order.
func (c Config) Registry() (*domain.RuleRegistry, error) {
	return domain.NewRuleRegistry(c.Rules...)
}

type ConfigLoader interface {
	Load(path string) (Config, error)
	Exists(path string) (bool, error)
}

// Autodetector derives a configuration from the project layout when no
// config file exists.
type Autodetector interface {
	Detect() (Config, error)
}

// Backends builds the collaborators whose behavior depends on configuration.
type Backends interface {
	ChangeSource(cfg Config) ChangeSource
	LineExtractor(cfg Config) (LineExtractor, error)
	CoverageOpener(cfg Config) CoverageOpener
	HistoryStore(cfg Config) HistoryStore
}

// ChangeSource reports what changed relative to a baseline ref.
type ChangeSource interface {
	ChangedFiles(ctx context.Context, ref string) ([]string, error)
	DiffText(ctx context.Context, ref string) (string, error)
}

// LineExtractor turns unified diff text into changed lines per file header.
type LineExtractor interface {
	Extract(text string) (domain.ChangedLineSet, error)
}

// CoverageRecord is the coverage of one class or source file.
type CoverageRecord interface {
	// Name is the slash-separated record name without extension, e.g. "com/acme/Foo".
	Name() string
	LineStatus(line int) domain.LineStatus
	LineCounter() domain.Counter
	InstructionCounter() domain.Counter
}

// CoverageReport exposes the records of an opened coverage report in report order.
type CoverageReport interface {
	Records() []CoverageRecord
}

// CoverageOpener opens a coverage report.
type CoverageOpener interface {
	Open(path string) (CoverageReport, error)
}

// RecordList is an in-memory CoverageReport.
type RecordList []CoverageRecord

// Records returns the list itself.
func (l RecordList) Records() []CoverageRecord {
	return l
}

// Result is everything a reporter needs about one run.
type Result struct {
	Report       domain.Report
	ChangedFiles []string
	ChangedLines int
	// Summaries holds the per-file changed-line coverage when a changed-line
	// rule needed it.
	Summaries []domain.CoverageSummary
}

// Passed reports whether every rule succeeded.
func (r Result) Passed() bool {
	return r.Report.Passed()
}

type Reporter interface {
	Write(w io.Writer, result Result, format OutputFormat) error
}

type HistoryStore interface {
	Load() (domain.History, error)
	Save(h domain.History) error
	Append(entry domain.HistoryEntry) error
}

// WatchCallback is called after each watch-mode run.
type WatchCallback func(runNumber int, err error)

// FileWatcher signals rewrites of a coverage report.
type FileWatcher interface {
	WatchReport(path string) error
	Events(ctx context.Context) <-chan struct{}
	Close() error
}

// CheckOptions carries CLI overrides for a single check run.
type CheckOptions struct {
	ConfigPath  string
	Output      OutputFormat
	Report      string
	BaseRef     string
	FailOnError *bool
	Commit      string
	Branch      string
}

// LinesOptions configures the changed-lines debug listing.
type LinesOptions struct {
	ConfigPath string
	BaseRef    string
}

// WatchOptions configures watch mode behavior.
type WatchOptions struct {
	Check    CheckOptions
	Clear    bool          // Clear terminal before each run
	Debounce time.Duration // Delay after the last event before re-running
}

// HistoryOptions selects recorded runs to show.
type HistoryOptions struct {
	ConfigPath string
	Limit      int
	// Since keeps only runs recorded within this window when positive.
	Since time.Duration
}

// HistoryResult summarizes recorded runs, newest first.
type HistoryResult struct {
	Entries  []domain.HistoryEntry `json:"entries"`
	Runs     int                   `json:"runs"`
	PassRate float64               `json:"passRate"`
}

// CommentMarker identifies covgate comments on a pull or merge request.
const CommentMarker = "<!-- covgate-report -->"

// PRProvider represents a git hosting provider.
type PRProvider string

const (
	// ProviderGitHub is GitHub.com or GitHub Enterprise
	ProviderGitHub PRProvider = "github"
	// ProviderGitLab is GitLab.com or self-hosted GitLab
	ProviderGitLab PRProvider = "gitlab"
	// ProviderAuto auto-detects the provider from environment
	ProviderAuto PRProvider = "auto"
)

// PRCommentOptions configures the PR comment feature.
type PRCommentOptions struct {
	Check          CheckOptions
	Provider       PRProvider // Git hosting provider (auto-detected if empty)
	PRNumber       int        // PR/MR number to comment on
	Owner          string     // Repository owner/namespace
	Repo           string     // Repository name
	ProjectID      string     // GitLab project ID (alternative to owner/repo)
	UpdateExisting bool       // Update existing comment instead of creating new
	DryRun         bool       // Just generate comment, don't post
}

// PRCommentResult contains the result of a PR comment operation.
type PRCommentResult struct {
	CommentID   int64  `json:"commentId,omitempty"`
	CommentURL  string `json:"commentUrl,omitempty"`
	CommentBody string `json:"commentBody"`
	Created     bool   `json:"created"` // true if created, false if updated
	Passed      bool   `json:"passed"`
}

// PRClient provides PR comment operations for any git hosting provider.
type PRClient interface {
	// Provider returns the provider type
	Provider() PRProvider
	// FindCoverageComment finds an existing coverage comment on a PR/MR
	FindCoverageComment(ctx context.Context, owner, repo string, prNumber int) (int64, error)
	// CreateComment creates a new comment on a PR/MR
	CreateComment(ctx context.Context, owner, repo string, prNumber int, body string) (int64, string, error)
	// UpdateComment updates an existing comment
	UpdateComment(ctx context.Context, owner, repo string, prNumber int, commentID int64, body string) error
}
