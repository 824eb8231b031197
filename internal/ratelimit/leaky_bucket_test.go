/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LeakyBucketLimiterTestSuite struct {
	suite.Suite
}

func TestLeakyBucketLimiter(t *testing.T) {
	suite.Run(t, new(LeakyBucketLimiterTestSuite))
}

func (ts *LeakyBucketLimiterTestSuite) TestAllowSequential() {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 2, Duration: time.Second}, 1, 100)
	ts.Require().NoError(err)
	ctx := context.Background()

	// Emission interval plus burst of one.
	for i := 0; i < 2; i++ {
		allow, retryAfter, allowErr := limiter.Allow(ctx, "client-1")
		ts.Require().NoError(allowErr)
		ts.True(allow)
		ts.Zero(retryAfter)
	}

	allow, retryAfter, err := limiter.Allow(ctx, "client-1")
	ts.Require().NoError(err)
	ts.False(allow)
	ts.Greater(retryAfter, time.Duration(0))
	ts.LessOrEqual(retryAfter, 500*time.Millisecond)
}

func (ts *LeakyBucketLimiterTestSuite) TestKeysAreIndependent() {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 1, Duration: time.Minute}, 0, 100)
	ts.Require().NoError(err)
	ctx := context.Background()

	allow, _, err := limiter.Allow(ctx, "client-1")
	ts.Require().NoError(err)
	ts.True(allow)
	allow, _, err = limiter.Allow(ctx, "client-1")
	ts.Require().NoError(err)
	ts.False(allow)

	allow, _, err = limiter.Allow(ctx, "client-2")
	ts.Require().NoError(err)
	ts.True(allow)
}
