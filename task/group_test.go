package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnOwnedIsReapedWithoutCollect(t *testing.T) {
	g := NewGroup()
	ctx := context.Background()

	done := make(chan struct{})

	g.Spawn(ctx, func(ctx context.Context) error {
		close(done)

		return nil
	}, true)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("owned child never ran")
	}

	require.NoError(t, g.DrainAll(ctx))
}

func TestSpawnUnownedMustBeCollected(t *testing.T) {
	g := NewGroup()
	ctx := context.Background()

	wantErr := errors.New("boom")
	g.Spawn(ctx, func(ctx context.Context) error {
		return wantErr
	}, false)

	result, err := g.WaitForChild(ctx)
	require.NoError(t, err)
	require.Equal(t, wantErr, result.Err)
}

func TestWaitForChildRespectsContextCancellation(t *testing.T) {
	g := NewGroup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.WaitForChild(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCollectNonBlocking(t *testing.T) {
	g := NewGroup()
	ctx := context.Background()

	_, ok := g.Collect()
	require.False(t, ok)

	block := make(chan struct{})
	g.Spawn(ctx, func(ctx context.Context) error {
		<-block

		return nil
	}, false)

	_, ok = g.Collect()
	require.False(t, ok)

	close(block)

	require.Eventually(t, func() bool {
		_, ok := g.Collect()

		return ok
	}, time.Second, time.Millisecond)
}

func TestDrainAllWaitsForMixedChildren(t *testing.T) {
	g := NewGroup()
	ctx := context.Background()

	const n = 5
	var finished atomic.Int32

	for i := 0; i < n; i++ {
		own := i%2 == 0

		g.Spawn(ctx, func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			finished.Add(1)

			return nil
		}, own)
	}

	require.NoError(t, g.DrainAll(ctx))
	require.Equal(t, int32(n), finished.Load())
}
