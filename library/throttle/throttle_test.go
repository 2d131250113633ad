package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewIdentityLimiterValidation(t *testing.T) {
	t.Parallel()

	_, err := NewIdentityLimiter(&IdentityLimiterCfg{PerSec: 0, Burst: 10})
	require.Error(t, err)

	_, err = NewIdentityLimiter(&IdentityLimiterCfg{PerSec: 10, Burst: 5})
	require.Error(t, err)

	limiter, err := NewIdentityLimiter(&IdentityLimiterCfg{PerSec: 10, Burst: 10})
	require.NoError(t, err)
	require.NotNil(t, limiter)
}

func TestConsumeWithinBurst(t *testing.T) {
	t.Parallel()

	limiter, err := NewIdentityLimiter(&IdentityLimiterCfg{PerSec: 10, Burst: 10})
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		ok, retryAfter := limiter.Consume("u1")
		require.True(t, ok, "request %d", i)
		require.Zero(t, retryAfter)
	}

	ok, retryAfter := limiter.Consume("u1")
	require.False(t, ok)
	require.GreaterOrEqual(t, retryAfter, 1)
}

func TestConsumeBlockWindow(t *testing.T) {
	t.Parallel()

	limiter, err := NewIdentityLimiter(&IdentityLimiterCfg{
		PerSec: 1, Burst: 1, BlockDuration: 60 * time.Second,
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	ok, _ := limiter.Consume("u1")
	require.True(t, ok)

	ok, retryAfter := limiter.Consume("u1")
	require.False(t, ok)
	require.Equal(t, 60, retryAfter)

	// still blocked well after the bucket itself would have refilled
	now = now.Add(30 * time.Second)
	ok, retryAfter = limiter.Consume("u1")
	require.False(t, ok)
	require.Equal(t, 30, retryAfter)

	// block window elapsed, tokens available again
	now = now.Add(31 * time.Second)
	ok, retryAfter = limiter.Consume("u1")
	require.True(t, ok)
	require.Zero(t, retryAfter)
}

func TestConsumeIndependentIdentities(t *testing.T) {
	t.Parallel()

	limiter, err := NewIdentityLimiter(&IdentityLimiterCfg{
		PerSec: 1, Burst: 1, BlockDuration: 60 * time.Second,
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	ok, _ := limiter.Consume("u1")
	require.True(t, ok)
	ok, _ = limiter.Consume("u1")
	require.False(t, ok)

	// another identity has its own bucket
	ok, _ = limiter.Consume("u2")
	require.True(t, ok)
}

func TestConsumeConcurrent(t *testing.T) {
	t.Parallel()

	limiter, err := NewIdentityLimiter(&IdentityLimiterCfg{PerSec: 100, Burst: 100})
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 10; j++ {
				limiter.Consume("shared")
				limiter.Consume("own")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
