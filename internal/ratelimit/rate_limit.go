/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Limiter interface defines the rate limiting contract.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// Alg represents a rate-limiting algorithm.
type Alg string

// Supported rate-limiting algorithms.
const (
	AlgLeakyBucket   Alg = "leaky_bucket"
	AlgSlidingWindow Alg = "sliding_window"
)

// ParseAlg parses the name of a rate-limiting algorithm (case-insensitive).
func ParseAlg(s string) (Alg, error) {
	switch alg := Alg(strings.ToLower(s)); alg {
	case AlgLeakyBucket, AlgSlidingWindow:
		return alg, nil
	}
	return "", fmt.Errorf("unknown rate limit alg %q, choose one of: [%s, %s]", s, AlgLeakyBucket, AlgSlidingWindow)
}

// NewLimiter creates a Limiter implementing the given algorithm.
// Burst is used by the leaky bucket only. Zero maxKeys makes a single limiter shared by all keys.
func NewLimiter(alg Alg, maxRate Rate, maxBurst, maxKeys int) (Limiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("rate should be positive, got %d per %s", maxRate.Count, maxRate.Duration)
	}
	switch alg {
	case AlgLeakyBucket:
		return NewLeakyBucketLimiter(maxRate, maxBurst, maxKeys)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(maxRate, maxKeys)
	}
	return nil, fmt.Errorf("unknown rate limit alg %q", alg)
}
