package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// LimiterOpts configures the outbound token bucket.
type LimiterOpts struct {
	// Rate is requests per second. Zero or less means unlimited.
	Rate float64
	// Burst is the bucket capacity; values below one become one.
	Burst int
}

// Limiter paces calls to an upstream with a token bucket.
type Limiter struct {
	rl  *rate.Limiter
	now func() time.Time
}

func NewLimiter(opts LimiterOpts) *Limiter {
	burst := max(opts.Burst, 1)
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	return &Limiter{rl: rate.NewLimiter(limit, burst), now: time.Now}
}

// Allow takes a token if one is available without waiting.
func (l *Limiter) Allow() bool {
	return l.rl.AllowN(l.now(), 1)
}

// Wait blocks for a token. It fails fast when ctx ends, or when its deadline
// would pass before a token arrives.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}
