package application

import (
	"context"
	"sort"

	"github.com/linebyline/covgate/internal/domain"
)

// HistoryHandler handles rule verdict history operations.
type HistoryHandler struct {
	ConfigLoader ConfigLoader
	Autodetector Autodetector
	Backends     Backends
}

// Record appends the verdicts of report to store.
func (h *HistoryHandler) Record(report domain.Report, opts CheckOptions, store HistoryStore) error {
	entry := domain.NewHistoryEntry(report, timeNow())
	entry.Commit = opts.Commit
	entry.Branch = opts.Branch
	return store.Append(entry)
}

// Show loads the configured history, newest first, limited to opts.Limit
// entries when positive. Runs and PassRate cover the opts.Since window.
func (h *HistoryHandler) Show(ctx context.Context, opts HistoryOptions) (HistoryResult, error) {
	cfg, err := loadOrDetectConfig(h.ConfigLoader, h.Autodetector, opts.ConfigPath)
	if err != nil {
		return HistoryResult{}, err
	}
	history, err := h.Backends.HistoryStore(cfg).Load()
	if err != nil {
		return HistoryResult{}, err
	}

	if opts.Since > 0 {
		history.Entries = history.EntriesAfter(timeNow().Add(-opts.Since))
	}

	entries := make([]domain.HistoryEntry, len(history.Entries))
	copy(entries, history.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}

	return HistoryResult{
		Entries:  entries,
		Runs:     len(history.Entries),
		PassRate: domain.Round2(history.PassRate()),
	}, nil
}
