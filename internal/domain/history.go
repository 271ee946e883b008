package domain

import "time"

// HistoryEntry records the verdicts of a single run.
type HistoryEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	BaseRef   string      `json:"baseRef,omitempty"`
	Commit    string      `json:"commit,omitempty"`
	Branch    string      `json:"branch,omitempty"`
	Passed    bool        `json:"passed"`
	Rules     []RuleEntry `json:"rules"`
}

// RuleEntry is the verdict of one rule at a point in time.
type RuleEntry struct {
	Kind      RuleKind `json:"kind"`
	Threshold float64  `json:"threshold"`
	Success   bool     `json:"success"`
}

// NewHistoryEntry converts a report into a history entry.
func NewHistoryEntry(report Report, at time.Time) HistoryEntry {
	entry := HistoryEntry{
		Timestamp: at,
		BaseRef:   report.BaseRef,
		Passed:    report.Passed(),
		Rules:     make([]RuleEntry, 0, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		entry.Rules = append(entry.Rules, RuleEntry{
			Kind:      o.Rule.Kind(),
			Threshold: o.Rule.Threshold().Value(),
			Success:   o.Result.Success(),
		})
	}
	return entry
}

// History contains all recorded runs.
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// EntriesAfter returns all entries after the given time.
func (h *History) EntriesAfter(t time.Time) []HistoryEntry {
	var result []HistoryEntry
	for _, e := range h.Entries {
		if e.Timestamp.After(t) {
			result = append(result, e)
		}
	}
	return result
}

// PassRate returns the fraction of recorded runs that passed, as a percentage.
func (h *History) PassRate() float64 {
	passed := 0
	for _, e := range h.Entries {
		if e.Passed {
			passed++
		}
	}
	pct, _ := CoveragePercentage(passed, len(h.Entries)-passed)
	return pct
}
