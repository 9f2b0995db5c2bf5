package utils

import (
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration // upper bound of the uniform jitter added per retry
	Logger      *Logger
}

// Delay returns how long to sleep before retrying after the given 1-based
// attempt: BaseDelay doubled per attempt, plus a uniform random jitter.
func (r *RetryConfig) Delay(attempt int) time.Duration {
	delay := r.BaseDelay << (attempt - 1)
	if r.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(r.Jitter)))
	}
	return delay
}

// Do executes fn with exponential back-off retry logic.
func (r *RetryConfig) Do(operationName string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < r.MaxAttempts {
			delay := r.Delay(attempt)
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
				operationName, attempt, r.MaxAttempts, lastErr, delay)
			time.Sleep(delay)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, r.MaxAttempts, lastErr)
}
