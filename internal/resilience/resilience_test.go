package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prilive-com/gramflow/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: 3,
		BaseWait:    time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      0,
	}
}

// ==================== Retry ====================

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := resilience.Retry(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := resilience.Retry(context.Background(), fastRetryConfig(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsBudget(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := resilience.Retry(context.Background(), fastRetryConfig(), func() (int, error) {
		calls++
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls) // first attempt + 3 retries
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := resilience.Retry(ctx, fastRetryConfig(), func() (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// ==================== Backoff ====================

func TestBackoff_Exponential(t *testing.T) {
	cfg := resilience.RetryConfig{
		BaseWait:   time.Second,
		MaxWait:    time.Minute,
		Multiplier: 2.0,
		Jitter:     0,
	}

	assert.Equal(t, time.Second, resilience.Backoff(cfg, 0, nil))
	assert.Equal(t, 2*time.Second, resilience.Backoff(cfg, 1, nil))
	assert.Equal(t, 4*time.Second, resilience.Backoff(cfg, 2, nil))
}

func TestBackoff_CappedAtMaxWait(t *testing.T) {
	cfg := resilience.RetryConfig{
		BaseWait:   time.Second,
		MaxWait:    3 * time.Second,
		Multiplier: 2.0,
		Jitter:     0,
	}

	assert.Equal(t, 3*time.Second, resilience.Backoff(cfg, 10, nil))
}

func TestBackoff_RetryAfterOverrides(t *testing.T) {
	cfg := fastRetryConfig()
	err := resilience.NewRetryableError(errors.New("flood"), 7*time.Second)

	assert.Equal(t, 7*time.Second, resilience.Backoff(cfg, 0, err))
}

func TestRetryAfter_Extraction(t *testing.T) {
	inner := errors.New("flood control")
	wrapped := resilience.NewRetryableError(inner, 2*time.Second)

	d, ok := resilience.RetryAfter(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = resilience.RetryAfter(inner)
	assert.False(t, ok)
}

// ==================== Breaker ====================

func TestBreaker_OpensOnConsecutiveFailures(t *testing.T) {
	cfg := resilience.DefaultBreakerConfig("test")
	cfg.Threshold = 3
	cb := resilience.NewBreaker[int](cfg)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.True(t, resilience.IsOpen(cb))

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.Error(t, err) // rejected while open
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cfg := resilience.DefaultBreakerConfig("cb")
	cfg.Threshold = 1
	cfg.OnStateChange = func(name, from, to string) {
		transitions = append(transitions, from+"->"+to)
	}
	cb := resilience.NewBreaker[int](cfg)

	_, _ = cb.Execute(func() (int, error) { return 0, errors.New("x") })

	require.Len(t, transitions, 1)
	assert.Equal(t, "closed->open", transitions[0])
}

// ==================== Rate Limiter ====================

func TestRateLimiter_GlobalLimit(t *testing.T) {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		GlobalRPS:   1,
		GlobalBurst: 1,
		KeyRPS:      100,
		KeyBurst:    100,
	})

	assert.True(t, rl.Allow("chat-1"))
	assert.False(t, rl.Allow("chat-2")) // global budget spent
}

func TestRateLimiter_PerKeyLimit(t *testing.T) {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		GlobalRPS:   100,
		GlobalBurst: 100,
		KeyRPS:      1,
		KeyBurst:    1,
	})

	assert.True(t, rl.Allow("chat-1"))
	assert.False(t, rl.Allow("chat-1")) // per-key budget spent
	assert.True(t, rl.Allow("chat-2"))  // independent key
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		GlobalRPS:   0.01,
		GlobalBurst: 1,
		KeyRPS:      0.01,
		KeyBurst:    1,
	})

	require.NoError(t, rl.Wait(context.Background(), "chat-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx, "chat-1"))
}

func TestRetry_PermanentErrorFailsFast(t *testing.T) {
	sentinel := errors.New("bad request")
	attempts := 0

	_, err := resilience.Retry(context.Background(), fastRetryConfig(), func() (int, error) {
		attempts++
		return 0, resilience.Permanent(sentinel)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts, "permanent errors must not spend the budget")
}
