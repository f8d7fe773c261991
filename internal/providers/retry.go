package providers

import (
	"context"
	"time"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// RetryConfig bounds retries of transient provider failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry; it doubles
	// on every subsequent retry.
	InitialBackoff time.Duration
}

// DefaultRetry retries twice with a short exponential backoff.
var DefaultRetry = RetryConfig{MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond}

// Retry runs fn with bounded retries and exponential backoff. Only
// failures wrapping domain.ErrTransient are retried; anything else is
// returned immediately. The context bounds the whole sequence.
func Retry(ctx context.Context, cfg RetryConfig, op string, fn func(context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetry
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = DefaultRetry.InitialBackoff
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.IsTransient(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Debug("%s failed (attempt %d/%d), retrying in %s: %v",
			op, attempt, cfg.MaxAttempts, backoff, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
