package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linebyline/covgate/internal/domain"
)

// CheckHandler handles coverage check operations.
type CheckHandler struct {
	ConfigLoader ConfigLoader
	Autodetector Autodetector
	Backends     Backends
}

// LoadConfig resolves the effective configuration of a check run.
func (h *CheckHandler) LoadConfig(opts CheckOptions) (Config, error) {
	cfg, err := loadOrDetectConfig(h.ConfigLoader, h.Autodetector, opts.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	cfg = applyOverrides(cfg, opts)
	if cfg.Coverage.Report == "" {
		return Config{}, fmt.Errorf("%w: no coverage report configured", ErrInvalidConfig)
	}
	return cfg, nil
}

// CheckResult evaluates the configured rules, returning the result.
// A failing rule is not an error.
func (h *CheckHandler) CheckResult(ctx context.Context, opts CheckOptions) (Result, Config, error) {
	cfg, err := h.LoadConfig(opts)
	if err != nil {
		return Result{}, Config{}, err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return Result{}, Config{}, err
	}

	evaluator, err := h.evaluator(cfg)
	if err != nil {
		return Result{}, Config{}, err
	}

	slog.Debug("Running coverage checks", "baseRef", cfg.BaseRef, "report", cfg.Coverage.Report, "rules", registry.Len())
	result, err := evaluator.Evaluate(ctx, registry, cfg)
	if err != nil {
		return Result{}, Config{}, err
	}
	return result, cfg, nil
}

// ChangedLines returns the changed-line set the changed-line rules would see.
func (h *CheckHandler) ChangedLines(ctx context.Context, opts LinesOptions) (domain.ChangedLineSet, error) {
	cfg, err := loadOrDetectConfig(h.ConfigLoader, h.Autodetector, opts.ConfigPath)
	if err != nil {
		return domain.ChangedLineSet{}, err
	}
	cfg = applyOverrides(cfg, CheckOptions{BaseRef: opts.BaseRef})

	extractor, err := h.Backends.LineExtractor(cfg)
	if err != nil {
		return domain.ChangedLineSet{}, err
	}
	text, err := h.Backends.ChangeSource(cfg).DiffText(ctx, cfg.BaseRef)
	if err != nil {
		return domain.ChangedLineSet{}, err
	}
	return extractor.Extract(text)
}

func (h *CheckHandler) evaluator(cfg Config) (*Evaluator, error) {
	if h.Backends == nil {
		return nil, fmt.Errorf("backends not configured")
	}
	extractor, err := h.Backends.LineExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		Changes:  h.Backends.ChangeSource(cfg),
		Lines:    extractor,
		Coverage: h.Backends.CoverageOpener(cfg),
	}, nil
}
