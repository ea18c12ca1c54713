// Package retryutil provides the exponential-backoff-with-jitter retry
// combinator the embedding client wraps its HTTP calls in, adapted from the teacher's
// rate-limited retry loop in internal/tools/web/search.go: the same
// attempt-count/base-delay/max-delay/jitter-percent shape, generalized
// from one SearXNG-specific call site to an arbitrary func(ctx) error.
package retryutil

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Config controls one retry loop's shape. Zero value is unusable; start
// from Default and override fields as needed.
type Config struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent float64
}

// Default matches §5's "3 attempts, 1-4s backoff window" retry budget for
// transient failures against LLM/embedding/storage backends.
func Default() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      4 * time.Second,
		JitterPercent: 0.3,
	}
}

// Classifier decides whether an error returned by the retried func is worth
// retrying at all; permanent errors (bad request, auth failure, context
// canceled) should return false so the loop fails fast instead of burning
// its attempt budget.
type Classifier func(err error) bool

// AlwaysRetry treats every non-nil error as transient, permanent ones
// included. Do falls back to it when shouldRetry is nil.
func AlwaysRetry(error) bool { return true }

// Do runs fn up to cfg.MaxAttempts times, applying exponential backoff with
// jitter between attempts, stopping early when the context is canceled or
// shouldRetry reports a permanent failure. The last error is returned
// wrapped with the attempt count when every attempt is exhausted.
func Do(ctx context.Context, cfg Config, shouldRetry Classifier, fn func(ctx context.Context) error) error {
	if shouldRetry == nil {
		shouldRetry = AlwaysRetry
	}
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		delay := cfg.BaseDelay * (1 << attempt)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		jitter := time.Duration(float64(delay) * cfg.JitterPercent * rand.Float64())
		delay += jitter

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("retryutil: failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
