// Package watcher signals when a coverage report is rewritten.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of report writes must settle before
// a change is signalled. Build tools write reports in several chunks.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports rewrites of one or more coverage report files. It watches
// the directory holding each report, so reports replaced by a rename or
// deleted and recreated by a clean build are still seen.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	reports map[string]struct{}
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		debounce: DefaultDebounce,
		reports:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WatchReport starts watching the report at path. The report itself need
// not exist yet; its directory is created when missing.
func (w *Watcher) WatchReport(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.mu.Lock()
	w.reports[abs] = struct{}{}
	w.mu.Unlock()
	slog.Debug("Watching coverage report", "path", abs)
	return nil
}

// Events returns a channel that emits once per settled burst of report
// changes. It is closed when ctx ends or the watcher is closed.
func (w *Watcher) Events(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})

	go func() {
		defer close(out)

		var timer *time.Timer
		var fire <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if !rewritten(event.Op) || !w.isReport(event.Name) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				fire = timer.C

			case <-fire:
				fire = nil
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}

			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				slog.Warn("File watcher error", "error", err)
			}
		}
	}()

	return out
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// rewritten includes renames because report tools often write a temporary
// file and move it into place.
func rewritten(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}

func (w *Watcher) isReport(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.reports[abs]
	return ok
}
