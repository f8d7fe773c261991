package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetry, "op", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesTransient(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("timeout: %w", domain.ErrTransient)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, "op", func(context.Context) error {
		calls++
		return fmt.Errorf("rate limited: %w", domain.ErrTransient)
	})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, 2, calls)
}

func TestRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), DefaultRetry, "op", func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Minute}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, cfg, "op", func(context.Context) error {
		return fmt.Errorf("transient: %w", domain.ErrTransient)
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_Backoff(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 10})
	rl.RecordRateLimitError(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
