/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAlg(t *testing.T) {
	alg, err := ParseAlg("Leaky_Bucket")
	require.NoError(t, err)
	require.Equal(t, AlgLeakyBucket, alg)

	alg, err = ParseAlg("sliding_window")
	require.NoError(t, err)
	require.Equal(t, AlgSlidingWindow, alg)

	_, err = ParseAlg("fixed_window")
	require.ErrorContains(t, err, "unknown rate limit alg")
}

func TestNewLimiter(t *testing.T) {
	lim, err := NewLimiter(AlgLeakyBucket, Rate{Count: 10, Duration: time.Second}, 5, 10)
	require.NoError(t, err)
	require.IsType(t, &LeakyBucketLimiter{}, lim)

	lim, err = NewLimiter(AlgSlidingWindow, Rate{Count: 10, Duration: time.Second}, 0, 10)
	require.NoError(t, err)
	require.IsType(t, &SlidingWindowLimiter{}, lim)

	_, err = NewLimiter(AlgSlidingWindow, Rate{Count: 0, Duration: time.Second}, 0, 10)
	require.Error(t, err)

	_, err = NewLimiter("token_bucket", Rate{Count: 1, Duration: time.Second}, 0, 10)
	require.Error(t, err)
}
