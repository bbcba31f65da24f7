// Package retry runs an operation with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

type Class int

const (
	Retryable Class = iota
	Fatal
)

type Policy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration
	Jitter      time.Duration

	// Classify decides whether an error is retryable. Nil retries everything.
	Classify func(error) Class

	// OnRetry is an optional hook for logging/metrics.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Do calls fn until it succeeds, returns a Fatal error, the attempts run out,
// or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	classify := p.Classify
	if classify == nil {
		classify = func(error) Class { return Retryable }
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if classify(err) == Fatal || attempt == p.MaxAttempts {
			break
		}

		wait := Backoff(p.BaseDelay, p.MaxDelay, attempt)
		if p.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Jitter)))
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if lastErr == nil {
		lastErr = errors.New("retry: exhausted with no error")
	}
	return lastErr
}

// Backoff returns base * 2^(attempt-1) capped at max.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := base
	for i := 1; i < attempt; i++ {
		wait <<= 1
		if wait <= 0 || wait > max {
			return max
		}
	}
	if wait > max {
		return max
	}
	return wait
}
