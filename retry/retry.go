/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations with bounded, exponentially delayed re-attempts.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
)

// IsRetryable defines a func that can tell if error is retryable as opposed to persistent.
type IsRetryable func(error) bool

// RetryableFunc is function that does some work and can be potentially retried.
// Attempt numbers start from 1.
type RetryableFunc func(ctx context.Context, attempt int) error

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// Opts represents options for DoWithRetry.
type Opts struct {
	// IsRetryable defines which errors lead to another attempt. Any error is retried if nil.
	IsRetryable IsRetryable

	// Notify is called before every delay with the error and the delay duration.
	Notify backoff.Notify

	// Clock drives delays between attempts. Real clock is used if nil.
	Clock clockwork.Clock
}

// DoWithRetry executes fn with retry according to policy p and with respect to context ctx.
// Non-retryable errors are returned right away, without unwrapping or wrapping.
// Cancellation of ctx interrupts a delay and ctx.Err() is returned.
func DoWithRetry(ctx context.Context, p Policy, opts Opts, fn RetryableFunc) error {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx, attempt)
		if err != nil && opts.IsRetryable != nil && !opts.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotifyWithTimer(op, backoff.WithContext(p.NewBackOff(), ctx), opts.Notify, &clockTimer{clock: clock})
}

// ExponentialBackoffPolicy allows up to maxAttempts attempts in total.
// The delay after the n-th failed attempt is 2^n * base, so with 1s base the delays are 2s, 4s, 8s and so on.
type ExponentialBackoffPolicy struct {
	base        time.Duration
	maxAttempts int
}

// NewExponentialBackoffPolicy returns an exponential backoff policy with given base and max attempt count.
// Non-positive maxAttempts is treated as a single attempt.
func NewExponentialBackoffPolicy(base time.Duration, maxAttempts int) ExponentialBackoffPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return ExponentialBackoffPolicy{base: base, maxAttempts: maxAttempts}
}

// MaxAttempts returns the total number of attempts allowed by the policy.
func (p ExponentialBackoffPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Delay returns the delay that follows the given failed attempt.
func (p ExponentialBackoffPolicy) Delay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * p.base
}

// NewBackOff implements retry.Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Delay(1)
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = time.Duration(math.MaxInt64)
	eb.MaxElapsedTime = 0
	if p.maxAttempts == 1 {
		return &backoff.StopBackOff{}
	}
	bf := backoff.WithMaxRetries(eb, uint64(p.maxAttempts-1))
	bf.Reset()
	return bf
}

// clockTimer adapts clockwork timers to backoff.Timer.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = t.clock.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.Chan()
}
