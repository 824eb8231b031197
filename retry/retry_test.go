/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errTerminal  = errors.New("terminal")
)

func TestExponentialBackoffPolicy(t *testing.T) {
	p := NewExponentialBackoffPolicy(time.Second, 4)
	require.Equal(t, 4, p.MaxAttempts())

	b := p.NewBackOff()
	require.Equal(t, 2*time.Second, b.NextBackOff())
	require.Equal(t, 4*time.Second, b.NextBackOff())
	require.Equal(t, 8*time.Second, b.NextBackOff())
	require.Less(t, b.NextBackOff(), time.Duration(0), "no more delays after the last attempt")

	single := NewExponentialBackoffPolicy(time.Second, 0)
	require.Equal(t, 1, single.MaxAttempts())
	require.Less(t, single.NewBackOff().NextBackOff(), time.Duration(0))
}

func TestDoWithRetry_SucceedsAfterDelays(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var delays []time.Duration
	var attempts []int

	done := make(chan error, 1)
	go func() {
		done <- DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Second, 3), Opts{
			Notify: func(_ error, d time.Duration) { delays = append(delays, d) },
			Clock:  clock,
		}, func(_ context.Context, attempt int) error {
			attempts = append(attempts, attempt)
			if attempt < 3 {
				return errTransient
			}
			return nil
		})
	}()

	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)
	clock.BlockUntil(1)
	clock.Advance(4 * time.Second)

	require.NoError(t, <-done)
	require.Equal(t, []int{1, 2, 3}, attempts)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
}

func TestDoWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Millisecond, 4), Opts{},
		func(context.Context, int) error {
			calls++
			return errTransient
		})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 4, calls)
}

func TestDoWithRetry_TerminalErrorStopsImmediately(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Hour, 5), Opts{
		IsRetryable: func(err error) bool { return !errors.Is(err, errTerminal) },
	}, func(context.Context, int) error {
		calls++
		return errTerminal
	})
	require.Same(t, errTerminal, err)
	require.Equal(t, 1, calls)
}

func TestDoWithRetry_ContextCanceledDuringDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- DoWithRetry(ctx, NewExponentialBackoffPolicy(time.Second, 3), Opts{Clock: clock},
			func(context.Context, int) error { return errTransient })
	}()

	clock.BlockUntil(1)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
