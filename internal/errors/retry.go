package errors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig tunes exponential backoff for transient failures.
type RetryConfig struct {
	// MaxRetries is the retry count on top of the initial attempt.
	MaxRetries int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the wait between retries.
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry.
	Multiplier float64

	// Jitter randomizes each wait to avoid synchronized retries.
	Jitter bool
}

// DefaultRetryConfig suits the remote HTTP services this module talks
// to: short first wait, bounded total backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// wait sleeps for the current backoff delay, honoring ctx, and returns
// the next delay.
func wait(ctx context.Context, cfg RetryConfig, delay time.Duration) (time.Duration, error) {
	d := delay
	if cfg.Jitter {
		d = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(d):
	}

	next := time.Duration(float64(delay) * cfg.Multiplier)
	if next > cfg.MaxDelay {
		next = cfg.MaxDelay
	}
	return next, nil
}

// Retry runs fn with exponential backoff until it succeeds, the
// attempts are exhausted, or ctx is cancelled.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult is Retry for functions that return a value. On
// exhaustion the zero value is returned with the wrapped last error.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt >= cfg.MaxRetries {
			break
		}

		delay, err = wait(ctx, cfg, delay)
		if err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}
