package domain

import "fmt"

// RuleRegistry holds the active rules. At most one rule per kind is allowed.
type RuleRegistry struct {
	rules []Rule
}

// NewRuleRegistry registers the given rules in order.
func NewRuleRegistry(rules ...Rule) (*RuleRegistry, error) {
	reg := &RuleRegistry{}
	for _, r := range rules {
		if err := reg.Add(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Add registers a rule, rejecting zero-value rules and duplicate kinds.
func (r *RuleRegistry) Add(rule Rule) error {
	if rule.kind == "" {
		return ErrNilRule
	}
	if _, ok := r.Get(rule.kind); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRuleKind, rule.kind)
	}
	r.rules = append(r.rules, rule)
	return nil
}

// Get returns the rule registered for kind.
func (r *RuleRegistry) Get(kind RuleKind) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.kind == kind {
			return rule, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the registered rules in registration order.
func (r *RuleRegistry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len returns the number of registered rules.
func (r *RuleRegistry) Len() int {
	return len(r.rules)
}
