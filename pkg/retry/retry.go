// Package retry repeats failing calls with a backoff between attempts.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

const defaultDelay = 100 * time.Millisecond

// Backoff returns the pause after the given failed attempt, counted from 1.
type Backoff func(attempt int) time.Duration

type ShouldRetry func(error) bool

// RetryConfig zero value makes a single attempt.
type RetryConfig struct {
	MaxAttempts int
	Backoff     Backoff
	ShouldRetry ShouldRetry
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.Backoff == nil {
		c.Backoff = ExponentialBackoff(defaultDelay)
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = func(error) bool { return true }
	}
	return c
}

// ExponentialBackoff doubles delay per attempt and adds up to half of it as
// jitter.
func ExponentialBackoff(delay time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := delay << attempt
		if d < 2 {
			return d
		}
		return d + time.Duration(rand.Int64N(int64(d/2))+1)
	}
}

func LinearBackoff(delay time.Duration) Backoff {
	return func(int) time.Duration { return delay }
}

// Capped limits b to max.
func Capped(b Backoff, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return min(b(attempt), max)
	}
}

func Do(ctx context.Context, c RetryConfig, fn func() error) error {
	_, err := DoWithResult(ctx, c, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult calls fn until it succeeds, the attempts run out or
// ShouldRetry rejects the error. The last error of fn is returned; when ctx
// ends during a pause it is joined with ctx.Err().
func DoWithResult[T any](
	ctx context.Context, c RetryConfig, fn func() (T, error),
) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c = c.withDefaults()

	var timer *time.Timer
	for attempt := 1; ; attempt++ {
		result, err := fn()
		switch {
		case err == nil:
			return result, nil
		case attempt >= c.MaxAttempts, !c.ShouldRetry(err):
			return zero, err
		}

		pause := c.Backoff(attempt)
		if timer == nil {
			timer = time.NewTimer(pause)
			defer timer.Stop()
		} else {
			timer.Reset(pause)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}
	}
}
