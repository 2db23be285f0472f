package fetch

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryConfig controls how often a failed download is retried.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BackoffBase is the wait before the second attempt.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to the wait on each further attempt.
	BackoffMultiplier float64

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the retry settings used when none are given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// transientError marks a download failure that may succeed on retry
// (network errors, 5xx, 408 and 429 responses).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error {
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// backoff computes the wait after a failed attempt, with +/- 25% jitter.
func (c RetryConfig) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	wait := time.Duration(float64(c.BackoffBase) * multiplier)
	if c.MaxBackoff > 0 && wait > c.MaxBackoff {
		wait = c.MaxBackoff
	}

	jitter := float64(wait) * 0.25 * (rand.Float64()*2 - 1)
	return wait + time.Duration(jitter)
}

// withRetry runs fn until it succeeds, fails permanently or runs out of
// attempts. Cancellation stops it immediately.
func (f *Fetcher) withRetry(ctx context.Context, source string, fn func() ([]byte, error)) ([]byte, error) {
	cfg := f.opts.Retry
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		body, err := fn()
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isTransient(err) {
			return nil, err
		}

		if attempt < cfg.MaxAttempts {
			wait := cfg.backoff(attempt)
			f.logger.Warn("Download failed, retrying",
				"url", source,
				"attempt", attempt,
				"max_attempts", cfg.MaxAttempts,
				"backoff", wait,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, lastErr
}
