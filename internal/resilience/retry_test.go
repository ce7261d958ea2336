package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("503"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAtConfiguredCap(t *testing.T) {
	transient := NewTransientError(errors.New("upstream down"), 502)
	calls := 0
	attempts, err := Do(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return transient
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	assert.True(t, IsTransient(err))
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("401 unauthorized")
	calls := 0
	attempts, err := Do(context.Background(), fastRetryConfig(5), func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnRecordError(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), fastRetryConfig(5), func(ctx context.Context) error {
		calls++
		return NewRecordError("congress", "hr-1", errors.New("bad payload"))
	})
	assert.True(t, IsRecordError(err))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:    10,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
		Multiplier:     2.0,
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Do(ctx, cfg, func(ctx context.Context) error {
		calls++
		return NewTransientError(errors.New("flaky"), 500)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoValReturnsValueAndAttempts(t *testing.T) {
	calls := 0
	got, attempts, err := DoVal(context.Background(), fastRetryConfig(3), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("429"), 429)
		}
		return "payload", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
	assert.Equal(t, 2, attempts)
}

func TestComputeBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}
	assert.Equal(t, 100*time.Millisecond, computeBackoff(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, computeBackoff(cfg, 2))
	assert.Equal(t, 400*time.Millisecond, computeBackoff(cfg, 3))
	assert.Equal(t, 800*time.Millisecond, computeBackoff(cfg, 4))
	assert.Equal(t, time.Second, computeBackoff(cfg, 5))
	assert.Equal(t, time.Second, computeBackoff(cfg, 20))
}

func TestComputeBackoffJitterStaysBounded(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Minute,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
	for i := 0; i < 50; i++ {
		b := computeBackoff(cfg, 2)
		assert.GreaterOrEqual(t, b, 150*time.Millisecond)
		assert.LessOrEqual(t, b, 250*time.Millisecond)
	}
}
