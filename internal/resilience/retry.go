package resilience

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of retries after the first attempt (0 = no retries)
	BaseWait    time.Duration // Initial wait duration
	MaxWait     time.Duration // Maximum wait duration
	Multiplier  float64       // Backoff multiplier (e.g., 2.0 for exponential)
	Jitter      float64       // Jitter factor (0.0-1.0)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseWait:    time.Second,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// RetryableError wraps an error with a server-provided retry delay
// (Telegram's retry_after).
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// NewRetryableError creates a retryable error.
func NewRetryableError(err error, retryAfter time.Duration) *RetryableError {
	return &RetryableError{Err: err, RetryAfter: retryAfter}
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Retry fails fast instead of spending the budget.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// RetryAfter extracts a server-specified delay from err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return retryErr.RetryAfter, true
	}
	return 0, false
}

// Retry executes fn until it succeeds, the attempt budget is spent, or ctx
// is cancelled. The wait between attempts grows exponentially with jitter
// unless the error carries an explicit retry_after.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return zero, perm.Err
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(Backoff(cfg, attempt, lastErr)):
		}
	}

	return zero, lastErr
}

// Backoff computes the wait before retry number attempt (0-based).
// A retry_after from the server overrides the computed backoff.
func Backoff(cfg RetryConfig, attempt int, err error) time.Duration {
	if retryAfter, ok := RetryAfter(err); ok && retryAfter > 0 {
		return retryAfter
	}

	wait := float64(cfg.BaseWait)
	for i := 0; i < attempt; i++ {
		wait *= cfg.Multiplier
	}
	if wait > float64(cfg.MaxWait) {
		wait = float64(cfg.MaxWait)
	}

	if cfg.Jitter > 0 {
		jitterRange := wait * cfg.Jitter
		n, randErr := rand.Int(rand.Reader, big.NewInt(int64(jitterRange*2)))
		if randErr == nil {
			wait += float64(n.Int64()) - jitterRange
		}
	}

	return time.Duration(wait)
}
