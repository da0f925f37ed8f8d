package ccr

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces periodic control-plane work (RTCP report generation)
// the way spec.md section 5 describes: "a timestamp and
// period; allow() succeeds when the elapsed time since the last success
// exceeds the period". Grounded on gtfodev-camsRelay's CommandQueue, which
// reaches for golang.org/x/time/rate for exactly this kind of smooth,
// burstless pacing instead of hand-rolling a CAS timestamp.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter that allows on average one event
// per period, with no bursting.
func NewRateLimiter(period time.Duration) *RateLimiter {
	if period <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(period), 1)}
}

// Allow reports whether an event may proceed now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// SetPeriod changes the limiter's period at runtime, e.g. when the RTCP
// communicator's report interval is reconfigured.
func (r *RateLimiter) SetPeriod(period time.Duration) {
	if period <= 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Every(period))
}
