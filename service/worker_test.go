/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/log/logtest"
)

func TestPeriodicWorker_Run(t *testing.T) {
	t.Run("runs on every tick and stops by context", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var c atomic.Int32
		ticked := make(chan struct{}, 10)
		pw := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			c.Inc()
			ticked <- struct{}{}
			return nil
		}), time.Second, log.NewDisabledLogger(), PeriodicWorkerOpts{Clock: clock})

		ctx, cancel := context.WithCancel(context.Background())
		runErr := make(chan error)
		go func() { runErr <- pw.Run(ctx) }()

		<-ticked // Zero initial delay.
		for i := 0; i < 3; i++ {
			clock.BlockUntil(1)
			clock.Advance(time.Second)
			<-ticked
		}
		cancel()
		require.NoError(t, <-runErr)
		require.Equal(t, int32(4), c.Load())
	})

	t.Run("stop by error", func(t *testing.T) {
		c := 0
		logger := logtest.NewRecorder()
		pw := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			c++
			return fmt.Errorf("wrapped: %w", ErrPeriodicWorkerStop)
		}), time.Second, logger, PeriodicWorkerOpts{Clock: clockwork.NewFakeClock()})
		require.NoError(t, pw.Run(context.Background()))
		require.Equal(t, 1, c)
		_, found := logger.FindEntry("periodic worker stopped successfully")
		require.True(t, found)
	})

	t.Run("interval delay depends on error", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		ticked := make(chan error, 10)
		c := 0
		intervalDelayFunc := func(_ Worker, err error) time.Duration {
			if err != nil {
				return 5 * time.Second
			}
			return time.Second
		}
		pw := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			c++
			var err error
			if c == 1 {
				err = fmt.Errorf("non-stop error")
			}
			ticked <- err
			return err
		}), time.Second, log.NewDisabledLogger(), PeriodicWorkerOpts{Clock: clock, IntervalDelayFunc: intervalDelayFunc})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		runErr := make(chan error)
		go func() { runErr <- pw.Run(ctx) }()

		require.Error(t, <-ticked)
		clock.BlockUntil(1)
		clock.Advance(4 * time.Second)
		select {
		case <-ticked:
			t.Fatal("worker must wait for the failure delay")
		case <-time.After(50 * time.Millisecond):
		}
		clock.Advance(time.Second)
		require.NoError(t, <-ticked)
		cancel()
		require.NoError(t, <-runErr)
	})
}
