// Package retry wraps transient operations with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls the retry loop.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // double the delay after each failure
	OnRetry     func(attempt int, err error)
}

// Do runs fn until it succeeds, the attempt budget is spent, or ctx is
// cancelled. The wait after attempt n is Delay<<(n-1) when Backoff is set.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == cfg.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, err)
			}
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, err)
			}

			delay := cfg.Delay
			if cfg.Backoff {
				delay = cfg.Delay << (attempt - 1)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}
