package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownRuleKind   = errors.New("unknown rule kind")
	ErrDuplicateRuleKind = errors.New("a rule of this kind is already registered")
	ErrNilRule           = errors.New("rule cannot be nil")
)

// RuleKind selects the granularity a threshold is compared at.
type RuleKind string

const (
	// RuleOverall compares whole-project line coverage.
	RuleOverall RuleKind = "OVERALL"
	// RulePerClass compares the whole-file coverage of every changed file.
	RulePerClass RuleKind = "PER_CLASS"
	// RuleTotalChangedLines compares coverage aggregated over all changed lines.
	RuleTotalChangedLines RuleKind = "TOTAL_CHANGED_LINES"
	// RulePerClassChangedLines compares the changed-line coverage of every changed file.
	RulePerClassChangedLines RuleKind = "PER_CLASS_CHANGED_LINES"
)

// RuleKinds lists every supported kind in declaration order.
func RuleKinds() []RuleKind {
	return []RuleKind{RuleOverall, RulePerClass, RuleTotalChangedLines, RulePerClassChangedLines}
}

// ParseRuleKind accepts kinds case-insensitively and with '-' in place of '_'.
func ParseRuleKind(s string) (RuleKind, error) {
	normalized := RuleKind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, k := range RuleKinds() {
		if k == normalized {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRuleKind, s)
}

// UsesChangedLines reports whether the kind is evaluated over changed lines.
func (k RuleKind) UsesChangedLines() bool {
	return k == RuleTotalChangedLines || k == RulePerClassChangedLines
}

func (k RuleKind) String() string {
	return string(k)
}

// Rule is an immutable (kind, threshold) pair.
type Rule struct {
	kind      RuleKind
	threshold Threshold
}

// NewRule validates the kind and threshold. The kind is stored in its
// canonical form, so "per-class" and PER_CLASS are the same kind.
func NewRule(kind RuleKind, threshold float64) (Rule, error) {
	canonical, err := ParseRuleKind(string(kind))
	if err != nil {
		return Rule{}, err
	}
	t, err := NewThreshold(threshold)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", canonical, err)
	}
	return Rule{kind: canonical, threshold: t}, nil
}

// MustRule creates a Rule, panicking if invalid.
func MustRule(kind RuleKind, threshold float64) Rule {
	r, err := NewRule(kind, threshold)
	if err != nil {
		panic(err)
	}
	return r
}

// Kind returns the rule kind.
func (r Rule) Kind() RuleKind {
	return r.kind
}

// Threshold returns the required minimum coverage.
func (r Rule) Threshold() Threshold {
	return r.threshold
}

func (r Rule) String() string {
	return fmt.Sprintf("%s >= %s", r.kind, r.threshold)
}
