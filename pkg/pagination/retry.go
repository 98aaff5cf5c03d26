package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/riksdag-client/pkg/client"
)

// RetryConfig holds the configuration for page retries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per page (including the
	// initial request).
	MaxAttempts int

	// Backoff is the fixed pause between attempts.
	Backoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 10,
		Backoff:     1 * time.Second,
	}
}

// sleepFunc pauses for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryTransient runs fn until it succeeds, fails with a non-transient error,
// or has been attempted cfg.MaxAttempts times. Only
// *client.TransientTransportError is retried.
func retryTransient[T any](ctx context.Context, cfg RetryConfig, sleep sleepFunc, logger zerolog.Logger, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Page request succeeded after retry")
			}
			return v, nil
		}

		if !client.IsTransient(err) {
			return zero, err
		}
		lastErr = err

		if attempt >= cfg.MaxAttempts {
			break
		}

		retriesTotal.Inc()
		retryBackoffSeconds.Observe(cfg.Backoff.Seconds())

		logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", cfg.Backoff).
			Msg("Retrying page request after backoff")

		if err := sleep(ctx, cfg.Backoff); err != nil {
			logger.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return zero, fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
	}

	retryExhaustedTotal.Inc()
	logger.Warn().
		Err(lastErr).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
