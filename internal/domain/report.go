package domain

// RuleValidationResult is the verdict of one rule for one run.
type RuleValidationResult struct {
	success bool
	message string
}

// NewRuleValidationResult creates an immutable verdict.
func NewRuleValidationResult(success bool, message string) RuleValidationResult {
	return RuleValidationResult{success: success, message: message}
}

// Success reports whether the rule passed.
func (r RuleValidationResult) Success() bool {
	return r.success
}

// Message returns the human-readable explanation.
func (r RuleValidationResult) Message() string {
	return r.message
}

// RuleOutcome pairs a rule with its verdict.
type RuleOutcome struct {
	Rule   Rule
	Result RuleValidationResult
}

// Report is the output of one evaluation run, in rule registration order.
type Report struct {
	BaseRef  string
	Outcomes []RuleOutcome
}

// Passed returns true if every rule succeeded.
func (r Report) Passed() bool {
	for _, o := range r.Outcomes {
		if !o.Result.Success() {
			return false
		}
	}
	return true
}

// Results returns the verdicts keyed by rule.
func (r Report) Results() map[Rule]RuleValidationResult {
	out := make(map[Rule]RuleValidationResult, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out[o.Rule] = o.Result
	}
	return out
}

// Failed returns the outcomes whose rule did not succeed.
func (r Report) Failed() []RuleOutcome {
	var failed []RuleOutcome
	for _, o := range r.Outcomes {
		if !o.Result.Success() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Summary returns a brief summary of the report.
func (r Report) Summary() string {
	if r.Passed() {
		return "All coverage rules passed"
	}
	return "Coverage rules failed"
}
