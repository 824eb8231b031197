/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package ratewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacer(t *testing.T) {
	const minDelay = 200 * time.Millisecond
	p := NewPacer(minDelay)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.Zero(t, p.Delay(start), "first call never waits")

	p.Record(start)
	require.Equal(t, minDelay, p.Delay(start))
	require.InDelta(t, float64(minDelay/2), float64(p.Delay(start.Add(minDelay/2))), float64(time.Microsecond))
	require.Zero(t, p.Delay(start.Add(time.Second)))
}

func TestPacer_SlowCallKeepsFullDelay(t *testing.T) {
	const minDelay = 200 * time.Millisecond
	p := NewPacer(minDelay)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// The call starts at start and completes a second later.
	require.Zero(t, p.Delay(start))
	completed := start.Add(time.Second)
	p.Record(completed)

	require.Equal(t, minDelay, p.Delay(completed))
	require.Zero(t, p.Delay(completed.Add(time.Second)))
}

func TestPacer_Disabled(t *testing.T) {
	p := NewPacer(0)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		p.Record(start)
		require.Zero(t, p.Delay(start))
	}
	require.Zero(t, p.MinDelay())
}
