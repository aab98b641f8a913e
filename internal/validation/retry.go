package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/guardloop/internal/finding"
)

// WithRetry decorates v with bounded retry and exponential backoff. The
// decorator lives at the collaborator boundary; the processing loop itself
// never retries. attempts is the total number of tries, baseDelay the wait
// before the second try, doubling each failure after that.
func WithRetry(v Validator, attempts int, baseDelay time.Duration) Validator {
	if attempts < 1 {
		attempts = 1
	}
	return Func(func(ctx context.Context, prompt, response string) (finding.ValidationResult, error) {
		var lastErr error
		delay := baseDelay
		for attempt := 0; attempt < attempts; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return finding.ValidationResult{}, ctx.Err()
				case <-time.After(delay):
				}
				delay *= 2
			}
			result, err := v.Validate(ctx, prompt, response)
			if err == nil {
				return result, nil
			}
			lastErr = err
		}
		return finding.ValidationResult{}, fmt.Errorf("validation: %d attempts failed: %w", attempts, lastErr)
	})
}
