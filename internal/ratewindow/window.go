/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package ratewindow

import (
	"fmt"
	"sync"
	"time"
)

// Window tracks timestamps of calls made within the trailing duration.
type Window struct {
	mu          sync.Mutex
	maxRequests int
	duration    time.Duration
	stamps      []time.Time // ordered, oldest first
}

// NewWindow creates a new sliding Window that admits at most maxRequests calls per duration.
func NewWindow(maxRequests int, duration time.Duration) (*Window, error) {
	if maxRequests <= 0 {
		return nil, fmt.Errorf("max requests should be positive, got %d", maxRequests)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("window duration should be positive, got %s", duration)
	}
	return &Window{maxRequests: maxRequests, duration: duration, stamps: make([]time.Time, 0, maxRequests)}, nil
}

// MaxRequests returns the number of calls admitted per window.
func (w *Window) MaxRequests() int {
	return w.maxRequests
}

// Duration returns the window duration.
func (w *Window) Duration() time.Duration {
	return w.duration
}

// Record registers a call made at t.
func (w *Window) Record(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Timestamps come from a single serialized caller, but keep the log ordered anyway.
	i := len(w.stamps)
	for i > 0 && w.stamps[i-1].After(t) {
		i--
	}
	w.stamps = append(w.stamps, time.Time{})
	copy(w.stamps[i+1:], w.stamps[i:])
	w.stamps[i] = t
}

// Prune drops timestamps that are at least one window duration older than now.
func (w *Window) Prune(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(now)
}

// Count returns the number of calls that still count against the budget at now.
func (w *Window) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(now)
	return len(w.stamps)
}

// TimeUntilNextSlot returns how long a new call has to wait at now.
// Zero means the call is permitted right away.
// The wait is computed from the oldest surviving timestamp, so it is the minimum necessary.
func (w *Window) TimeUntilNextSlot(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(now)
	if len(w.stamps) < w.maxRequests {
		return 0
	}
	// Only the calls beyond the budget need to age out.
	oldest := w.stamps[len(w.stamps)-w.maxRequests]
	wait := w.duration - now.Sub(oldest)
	if wait < 0 {
		return 0
	}
	return wait
}

func (w *Window) pruneLocked(now time.Time) {
	n := 0
	for n < len(w.stamps) && now.Sub(w.stamps[n]) >= w.duration {
		n++
	}
	if n == 0 {
		return
	}
	w.stamps = append(w.stamps[:0], w.stamps[n:]...)
}
