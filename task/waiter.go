package task

import (
	"context"
	"time"
)

// Waiter is a cancellable sleep: Wait blocks for a duration unless
// Wakeup is called first, in which case it returns immediately. This is
// the targeted-cancellation primitive spec.md §5 describes — "wake-up
// is a targeted cancellation of a wait timer, not of the surrounding
// loop" — used by the incremental-sync poll loop (spec.md §4.4 step iv)
// so an admin-triggered wake-up can cut a 20-second poll sleep short
// without tearing down the loop around it.
type Waiter struct {
	wake chan struct{}
}

// NewWaiter creates a Waiter with no pending wake-up.
func NewWaiter() *Waiter {
	return &Waiter{wake: make(chan struct{}, 1)}
}

// Wait blocks for d, or until Wakeup is called, or until ctx is done,
// whichever happens first.
func (w *Waiter) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-w.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wakeup cancels any in-progress (or next) Wait. It never blocks: if a
// wake-up is already queued, a second call is a no-op.
func (w *Waiter) Wakeup() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
