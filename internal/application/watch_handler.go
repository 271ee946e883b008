package application

import (
	"context"
	"fmt"

	"github.com/linebyline/covgate/internal/pathutil"
)

// WatchHandler handles watch mode operations.
type WatchHandler struct {
	Check func(ctx context.Context, opts CheckOptions) error
	Load  func(opts CheckOptions) (Config, error)
}

// Watch re-runs the check whenever the coverage report is rewritten.
func (h *WatchHandler) Watch(ctx context.Context, opts WatchOptions, watcher FileWatcher, callback WatchCallback) error {
	cfg, err := h.Load(opts.Check)
	if err != nil {
		return err
	}

	report := pathutil.Resolve(cfg.BaseDir, cfg.Coverage.Report)
	if err := watcher.WatchReport(report); err != nil {
		return fmt.Errorf("failed to watch coverage report: %w", err)
	}

	runNumber := 1
	runErr := h.Check(ctx, opts.Check)
	if callback != nil {
		callback(runNumber, runErr)
	}

	events := watcher.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			runNumber++
			runErr := h.Check(ctx, opts.Check)
			if callback != nil {
				callback(runNumber, runErr)
			}
		}
	}
}
