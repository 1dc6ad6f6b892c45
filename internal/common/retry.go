package common

import (
	"context"
	"fmt"
	"time"

	"carbridge/pricer/internal/logging"
)

// Retry executes fn up to maxAttempts times with a fixed backoff between
// attempts. The backoff sleep respects context cancellation. Used by the
// reference loader and the external lookup clients.
func Retry(ctx context.Context, operation string, maxAttempts int, backoff time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < maxAttempts {
			logging.Warn("Retrying operation",
				"operation", operation,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"backoff", backoff.String(),
				"error", lastErr.Error(),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxAttempts, lastErr)
}
