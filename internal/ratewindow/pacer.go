/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package ratewindow

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Pacer keeps a minimum delay between the completion of a call and the start of the next one.
// The delay is measured from completion, so a slow call does not shorten the pause that follows it.
type Pacer struct {
	minDelay time.Duration
	limiter  *rate.Limiter // nil if pacing is disabled
}

// NewPacer creates a new Pacer. Zero minDelay disables pacing.
func NewPacer(minDelay time.Duration) *Pacer {
	if minDelay <= 0 {
		return &Pacer{}
	}
	return &Pacer{minDelay: minDelay, limiter: rate.NewLimiter(rate.Every(minDelay), 1)}
}

// MinDelay returns the configured minimum delay.
func (p *Pacer) MinDelay() time.Duration {
	return p.minDelay
}

// Record marks a call completed at t.
func (p *Pacer) Record(t time.Time) {
	if p.limiter == nil {
		return
	}
	p.limiter.ReserveN(t, 1)
}

// Delay returns how long a call starting at now has to wait. It is zero until the first call is recorded.
func (p *Pacer) Delay(now time.Time) time.Duration {
	if p.limiter == nil {
		return 0
	}
	missing := 1 - p.limiter.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(missing * float64(p.minDelay)))
}
