package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func expectEvent(t *testing.T, ctx context.Context, events <-chan struct{}) {
	t.Helper()
	select {
	case <-events:
	case <-ctx.Done():
		t.Fatal("timeout waiting for report change event")
	}
}

func expectNoEvent(t *testing.T, ctx context.Context, events <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("unexpected event")
		}
	case <-ctx.Done():
	}
}

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWatcherDetectsReportRewrite(t *testing.T) {
	report := filepath.Join(t.TempDir(), "jacoco.xml")
	w := newWatcher(t, WithDebounce(50*time.Millisecond))
	if err := w.WatchReport(report); err != nil {
		t.Fatalf("watch report: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	if err := os.WriteFile(report, []byte("<report/>"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	expectEvent(t, ctx, events)
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t, WithDebounce(50*time.Millisecond))
	if err := w.WatchReport(filepath.Join(dir, "jacoco.xml")); err != nil {
		t.Fatalf("watch report: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	events := w.Events(ctx)

	for _, name := range []string{"jacoco.exec", "jacoco.csv", "index.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{0x01}, 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	expectNoEvent(t, ctx, events)
}

func TestWatcherSeesReportMovedIntoPlace(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "lcov.info")
	w := newWatcher(t, WithDebounce(50*time.Millisecond))
	if err := w.WatchReport(report); err != nil {
		t.Fatalf("watch report: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	tmp := filepath.Join(dir, "lcov.info.tmp")
	if err := os.WriteFile(tmp, []byte("TN:\nend_of_record\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.Rename(tmp, report); err != nil {
		t.Fatalf("rename: %v", err)
	}
	expectEvent(t, ctx, events)
}

func TestWatchReportCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "target", "site", "jacoco")
	w := newWatcher(t)
	if err := w.WatchReport(filepath.Join(dir, "jacoco.xml")); err != nil {
		t.Fatalf("watch report: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected %s to be created", dir)
	}
}

func TestWatcherDebounces(t *testing.T) {
	report := filepath.Join(t.TempDir(), "cobertura.xml")
	w := newWatcher(t, WithDebounce(100*time.Millisecond))
	if err := w.WatchReport(report); err != nil {
		t.Fatalf("watch report: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(report, []byte("<coverage>"+string(rune('a'+i))), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	eventCount := 0
	timeout := time.After(400 * time.Millisecond)
loop:
	for {
		select {
		case <-events:
			eventCount++
		case <-timeout:
			break loop
		}
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 debounced event, got %d", eventCount)
	}
}

func TestEventsClosesOnCancel(t *testing.T) {
	w := newWatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	events := w.Events(ctx)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}

func TestWithDebounceIgnoresNonPositive(t *testing.T) {
	w := newWatcher(t, WithDebounce(0), WithDebounce(-time.Second))
	if w.debounce != DefaultDebounce {
		t.Fatalf("expected default debounce, got %v", w.debounce)
	}
}
