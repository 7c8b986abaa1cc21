package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, time.Millisecond, func(context.Context) {
			runs.Add(1)
		})
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 },
		time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// No further ticks after Run returned.
	final := runs.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, final, runs.Load())
}

func TestRunsNeverOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inFlight atomic.Int64
	var maxSeen atomic.Int64
	var runs atomic.Int64

	stop := Start(ctx, time.Millisecond, func(context.Context) {
		cur := inFlight.Add(1)
		if cur > maxSeen.Load() {
			maxSeen.Store(cur)
		}
		// Outlast several intervals to force dropped ticks.
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		runs.Add(1)
	})

	require.Eventually(t, func() bool { return runs.Load() >= 3 },
		time.Second, time.Millisecond)
	stop()

	assert.Equal(t, int64(1), maxSeen.Load())
}

func TestStartStopWaitsForRun(t *testing.T) {
	var started atomic.Bool
	var finished atomic.Bool

	stop := Start(context.Background(), time.Millisecond, func(context.Context) {
		started.Store(true)
		time.Sleep(5 * time.Millisecond)
		finished.Store(true)
	})

	require.Eventually(t, started.Load, time.Second, time.Millisecond)
	stop()

	// The run in progress when stop was called must have completed.
	assert.True(t, finished.Load())

	// Calling stop again is a no-op.
	stop()
}
