package domain

import "errors"

var ErrInvalidCoverageInput = errors.New("invalid coverage input")

// InvalidCoverageInputError reports which counter was negative.
type InvalidCoverageInputError struct {
	Field string
	Value int
}

func (e *InvalidCoverageInputError) Error() string {
	return e.Field + " can not be negative."
}

func (e *InvalidCoverageInputError) Is(target error) bool {
	return target == ErrInvalidCoverageInput
}

// CoveragePercentage returns covered / (covered + missed) * 100.
// No measurable lines counts as full coverage, so 0/0 returns exactly 100.
func CoveragePercentage(covered, missed int) (float64, error) {
	if covered == 0 && missed == 0 {
		return 100, nil
	}
	if covered < 0 {
		return 0, &InvalidCoverageInputError{Field: "Lines covered", Value: covered}
	}
	if missed < 0 {
		return 0, &InvalidCoverageInputError{Field: "Lines missed", Value: missed}
	}
	return float64(covered) / float64(covered+missed) * 100, nil
}

// FinalSuccess folds the fail-on-error policy into a verdict: errors only
// fail an otherwise successful rule when failOnError is set.
func FinalSuccess(kindSucceeded, failOnError, hasErrors bool) bool {
	return kindSucceeded && !(failOnError && hasErrors)
}
