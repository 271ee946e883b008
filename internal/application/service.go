package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/linebyline/covgate/internal/domain"
)

// Service is the entry point of every covgate command.
type Service struct {
	ConfigLoader ConfigLoader
	Autodetector Autodetector
	Backends     Backends
	Reporter     Reporter
	PRClients    map[PRProvider]PRClient
	Out          io.Writer
}

func (s *Service) checkHandler() *CheckHandler {
	return &CheckHandler{
		ConfigLoader: s.ConfigLoader,
		Autodetector: s.Autodetector,
		Backends:     s.Backends,
	}
}

func (s *Service) historyHandler() *HistoryHandler {
	return &HistoryHandler{
		ConfigLoader: s.ConfigLoader,
		Autodetector: s.Autodetector,
		Backends:     s.Backends,
	}
}

// Check evaluates the configured rules and writes the report. It returns
// ErrRulesFailed when any rule failed.
func (s *Service) Check(ctx context.Context, opts CheckOptions) error {
	result, cfg, err := s.CheckResult(ctx, opts)
	if err != nil {
		return err
	}

	output := opts.Output
	if output == "" {
		output = OutputText
	}
	if err := s.Reporter.Write(s.Out, result, output); err != nil {
		return err
	}

	if cfg.History.Enabled {
		if err := s.historyHandler().Record(result.Report, opts, s.Backends.HistoryStore(cfg)); err != nil {
			slog.Warn("Failed to record history", "path", cfg.History.Path, "error", err)
		}
	}

	if !result.Passed() {
		return ErrRulesFailed
	}
	return nil
}

// CheckResult evaluates the configured rules without writing anything.
func (s *Service) CheckResult(ctx context.Context, opts CheckOptions) (Result, Config, error) {
	return s.checkHandler().CheckResult(ctx, opts)
}

// RunChecks evaluates registry against cfg directly.
func (s *Service) RunChecks(ctx context.Context, registry *domain.RuleRegistry, cfg Config) (domain.Report, error) {
	evaluator, err := s.checkHandler().evaluator(cfg)
	if err != nil {
		return domain.Report{}, err
	}
	return evaluator.RunChecks(ctx, registry, cfg)
}

// ChangedLines returns the changed-line set against the configured baseline.
func (s *Service) ChangedLines(ctx context.Context, opts LinesOptions) (domain.ChangedLineSet, error) {
	return s.checkHandler().ChangedLines(ctx, opts)
}

// Lines writes the changed-line set, one file section per line.
func (s *Service) Lines(ctx context.Context, opts LinesOptions) error {
	set, err := s.ChangedLines(ctx, opts)
	if err != nil {
		return err
	}
	if set.IsEmpty() {
		_, err := fmt.Fprintln(s.Out, "No changed lines found.")
		return err
	}
	for _, header := range set.Headers() {
		lines, _ := set.Lines(header)
		nums := make([]string, len(lines))
		for i, n := range lines {
			nums[i] = fmt.Sprint(n)
		}
		if _, err := fmt.Fprintf(s.Out, "%s: [%s]\n", header, strings.Join(nums, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// Detect returns the configuration autodetected from the project layout.
func (s *Service) Detect(ctx context.Context) (Config, error) {
	if s.Autodetector == nil {
		return DefaultConfig(), nil
	}
	return s.Autodetector.Detect()
}

// History returns the recorded verdicts.
func (s *Service) History(ctx context.Context, opts HistoryOptions) (HistoryResult, error) {
	return s.historyHandler().Show(ctx, opts)
}

// Comment posts the markdown report on a pull or merge request.
func (s *Service) Comment(ctx context.Context, opts PRCommentOptions) (PRCommentResult, error) {
	handler := &PRCommentHandler{
		Check:     s.checkHandler(),
		Reporter:  s.Reporter,
		PRClients: s.PRClients,
	}
	return handler.PRComment(ctx, opts)
}

// Watch re-runs Check whenever the coverage report changes.
func (s *Service) Watch(ctx context.Context, opts WatchOptions, watcher FileWatcher, callback WatchCallback) error {
	handler := &WatchHandler{
		Check: s.Check,
		Load:  s.checkHandler().LoadConfig,
	}
	return handler.Watch(ctx, opts, watcher, callback)
}
