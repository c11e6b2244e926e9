// Package ratelimit caps the rate at which new workflows start.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates workflow starts at a fixed requests-per-second rate.
// A nil Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter for the given rate. A non-positive rps
// returns nil, meaning unlimited.
func NewLimiter(rps int) *Limiter {
	if rps <= 0 {
		return nil
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Wait blocks until the limiter permits another start or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
