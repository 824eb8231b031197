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

type SlidingWindowLimiterTestSuite struct {
	suite.Suite
}

func TestSlidingWindowLimiter(t *testing.T) {
	suite.Run(t, new(SlidingWindowLimiterTestSuite))
}

func (ts *SlidingWindowLimiterTestSuite) TestAllowSequential() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 2, Duration: time.Hour}, 100)
	ts.Require().NoError(err)
	ctx := context.Background()

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
	ts.LessOrEqual(retryAfter, time.Hour)

	allow, _, err = limiter.Allow(ctx, "client-2")
	ts.Require().NoError(err)
	ts.True(allow)
}

func (ts *SlidingWindowLimiterTestSuite) TestSharedWindowWithoutKeys() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 1, Duration: time.Hour}, 0)
	ts.Require().NoError(err)
	ctx := context.Background()

	allow, _, err := limiter.Allow(ctx, "client-1")
	ts.Require().NoError(err)
	ts.True(allow)
	allow, _, err = limiter.Allow(ctx, "client-2")
	ts.Require().NoError(err)
	ts.False(allow)
}
