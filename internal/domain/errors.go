package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal run errors.
var (
	ErrDiffUnavailable          = errors.New("diff unavailable")
	ErrCoverageReportUnreadable = errors.New("coverage report unreadable")
)

// DiffUnavailableError is returned when the diff-producing process fails.
type DiffUnavailableError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *DiffUnavailableError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *DiffUnavailableError) Unwrap() error {
	return e.Err
}

func (e *DiffUnavailableError) Is(target error) bool {
	return target == ErrDiffUnavailable
}

// CoverageReportUnreadableError is returned when a coverage report cannot be
// opened or decoded.
type CoverageReportUnreadableError struct {
	Path string
	Err  error
}

func (e *CoverageReportUnreadableError) Error() string {
	return fmt.Sprintf("coverage report %s: %v", e.Path, e.Err)
}

func (e *CoverageReportUnreadableError) Unwrap() error {
	return e.Err
}

func (e *CoverageReportUnreadableError) Is(target error) bool {
	return target == ErrCoverageReportUnreadable
}
