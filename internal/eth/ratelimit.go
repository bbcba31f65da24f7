package eth

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a minimal interface to rate-limit RPC calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// nopLimiter allows unlimited throughput.
type nopLimiter struct{}

func (nopLimiter) Wait(ctx context.Context) error { return ctx.Err() }

// NewLimiter returns a Limiter enforcing rps requests per second with a burst
// of 10% of the rate (at least 1). If rps <= 0, returns unlimited.
func NewLimiter(rps int) Limiter {
	if rps <= 0 {
		return nopLimiter{}
	}
	burst := rps / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
