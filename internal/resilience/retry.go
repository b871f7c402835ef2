package resilience

import (
	"context"
	"time"
)

// Retry runs op up to attempts times with exponential backoff starting
// at baseDelay (baseDelay, 2*baseDelay, 4*baseDelay, ...). It returns
// the last error when all attempts fail, or the context error if the
// context is cancelled while waiting.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, op func() error) error {
	var lastErr error
	delay := baseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
