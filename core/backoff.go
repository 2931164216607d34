package core

import (
	"context"
	"errors"
	"time"
)

// BackoffConfig bounds the exponential retry schedule used when the signing
// capability is unavailable.
type BackoffConfig struct {
	// Initial is the delay before the first retry
	Initial time.Duration
	// Factor multiplies the delay after each failed attempt
	Factor float64
	// Max caps the delay between attempts
	Max time.Duration
	// MaxAttempts is the total number of attempts before giving up
	MaxAttempts int
}

// Validate checks if the backoff configuration is valid
func (c BackoffConfig) Validate() error {
	if c.Initial <= 0 {
		return errors.New("Initial must be greater than 0")
	}
	if c.Factor < 1 {
		return errors.New("Factor must be at least 1")
	}
	if c.Max < c.Initial {
		return errors.New("Max must be at least Initial")
	}
	if c.MaxAttempts < 1 {
		return errors.New("MaxAttempts must be greater than 0")
	}
	return nil
}

// DefaultBackoffConfig returns sensible defaults
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:     100 * time.Millisecond,
		Factor:      2,
		Max:         5 * time.Second,
		MaxAttempts: 6,
	}
}

// Retry runs fn up to MaxAttempts times with bounded exponential delays
// between attempts. It returns the last error when the budget is exhausted,
// or the context error if cancelled while waiting.
func (c BackoffConfig) Retry(ctx context.Context, fn func() error) error {
	delay := c.Initial
	var lastErr error

	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * c.Factor)
			if delay > c.Max {
				delay = c.Max
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
