package domain

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidThreshold = errors.New("threshold must be between 0 and 100")

// Threshold is a required minimum coverage percentage in [0, 100].
type Threshold struct {
	value float64
}

// NewThreshold rejects values outside [0, 100], NaN included.
func NewThreshold(value float64) (Threshold, error) {
	if math.IsNaN(value) || value < 0 || value > 100 {
		return Threshold{}, fmt.Errorf("%w: got %v", ErrInvalidThreshold, value)
	}
	return Threshold{value: value}, nil
}

func (t Threshold) Value() float64 {
	return t.value
}

// String renders the threshold as "80.00%".
func (t Threshold) String() string {
	return FormatPercent(t.value) + "%"
}

// FormatPercent renders a percentage with two decimals using a '.' separator.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Round2 rounds to two decimals. Percentages are only rounded for
// presentation, never before comparison.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
