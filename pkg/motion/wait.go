package motion

import (
	"context"
	"time"
)

// Result of a cancellable wait.
type Result int

const (
	WaitCompleted Result = iota
	WaitCancelled
)

// outcome maps a wait result onto a routine outcome.
func (r Result) outcome() Outcome {
	if r == WaitCancelled {
		return Cancelled
	}
	return Completed
}

// Wait sleeps ticks × tick, checking ctx before each tick and waking early if
// it is cancelled. Worst-case cancellation latency is one tick. A non-positive
// tick count returns immediately without polling.
func Wait(ctx context.Context, ticks int, tick time.Duration) Result {
	if ticks <= 0 {
		return WaitCompleted
	}

	timer := time.NewTimer(tick)
	defer timer.Stop()

	for i := 0; i < ticks; i++ {
		if ctx.Err() != nil {
			return WaitCancelled
		}
		if i > 0 {
			timer.Reset(tick)
		}
		select {
		case <-ctx.Done():
			return WaitCancelled
		case <-timer.C:
		}
	}
	return WaitCompleted
}

// Settle is the uncancellable fixed pause used between gait phases.
func Settle(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
