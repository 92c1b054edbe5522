package analysis

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrAnalysisFailed     = errors.New("failed to analyze landing page")
	ErrRegenerationFailed = errors.New("failed to regenerate content")
)

// RateLimitError reports when the caller may retry. It matches ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
