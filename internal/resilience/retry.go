package resilience

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior for transient failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (first try included).
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration
	// Multiplier is applied to the backoff after each attempt.
	Multiplier float64
	// JitterFraction randomizes each delay by +/- this fraction.
	JitterFraction float64
	// ShouldRetry decides whether an error is retryable. Defaults to IsTransient.
	ShouldRetry func(error) bool
	// OnRetry is invoked before each sleep, with the attempt that just failed.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig matches the backoff profile used across all connectors.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

func (c *RetryConfig) applyDefaults() {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Multiplier <= 1 {
		c.Multiplier = d.Multiplier
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = IsTransient
	}
}

// Do runs fn up to cfg.MaxAttempts times, sleeping between attempts. It
// returns the number of attempts made along with the last error. Permanent
// errors stop the loop immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) (int, error) {
	cfg.applyDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !cfg.ShouldRetry(lastErr) {
			return attempt, lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := computeBackoff(cfg, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, backoff)
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return cfg.MaxAttempts, lastErr
}

// DoVal is Do for functions returning a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, int, error) {
	var result T
	attempts, err := Do(ctx, cfg, func(ctx context.Context) error {
		var ferr error
		result, ferr = fn(ctx)
		return ferr
	})
	return result, attempts, err
}

func computeBackoff(cfg RetryConfig, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= cfg.Multiplier
		if backoff >= float64(cfg.MaxBackoff) {
			backoff = float64(cfg.MaxBackoff)
			break
		}
	}
	if cfg.JitterFraction > 0 {
		jitter := backoff * cfg.JitterFraction
		backoff = backoff - jitter + rand.Float64()*2*jitter
	}
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}

// RetryLogger returns an OnRetry callback that logs each retry at warn level.
func RetryLogger(logger *zap.Logger, operation string) func(int, error, time.Duration) {
	return func(attempt int, err error, backoff time.Duration) {
		logger.Warn("retrying after transient failure",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
	}
}
