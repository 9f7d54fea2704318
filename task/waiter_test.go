package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitReturnsAfterDuration(t *testing.T) {
	w := NewWaiter()
	start := time.Now()

	require.NoError(t, w.Wait(context.Background(), 10*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestWakeupCutsWaitShort(t *testing.T) {
	w := NewWaiter()

	go func() {
		time.Sleep(5 * time.Millisecond)
		w.Wakeup()
	}()

	start := time.Now()
	require.NoError(t, w.Wait(context.Background(), time.Minute))
	require.Less(t, time.Since(start), time.Second)
}

func TestWaitRespectsContext(t *testing.T) {
	w := NewWaiter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, w.Wait(ctx, time.Minute), context.Canceled)
}

func TestWakeupBeforeWaitIsNotLost(t *testing.T) {
	w := NewWaiter()
	w.Wakeup()

	start := time.Now()
	require.NoError(t, w.Wait(context.Background(), time.Minute))
	require.Less(t, time.Since(start), time.Second)
}
