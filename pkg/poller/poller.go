// Package poller provides a cancellable fixed-interval task runner.
//
// It replaces the bare timer-plus-callback pattern: the task body runs
// synchronously on each tick, so two runs can never overlap, and a run that
// outlasts the interval simply absorbs the missed ticks (time.Ticker drops
// them). Cancelling the context stops the schedule; a run already in
// progress finishes and its outcome is discarded by the caller.
package poller

import (
	"context"
	"time"
)

// Func is a single task run. The context is the poller's context; a task
// should return promptly once it is cancelled.
type Func func(ctx context.Context)

// Run executes fn every interval until ctx is cancelled. It blocks; use
// Start for a detached task. The first run happens after one full interval,
// not immediately.
func Run(ctx context.Context, interval time.Duration, fn Func) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Start launches Run in its own goroutine and returns a stop function.
// Stop cancels the schedule and waits for an in-progress run to return.
// It is safe to call stop more than once.
func Start(ctx context.Context, interval time.Duration, fn Func) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		Run(ctx, interval, fn)
	}()

	return func() {
		cancel()
		<-done
	}
}
