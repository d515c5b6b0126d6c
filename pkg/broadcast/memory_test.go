package broadcast_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/broadcast"
)

func TestMemoryBroadcaster_Broadcast(t *testing.T) {
	t.Parallel()

	t.Run("delivers to every subscriber", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](4)
		defer b.Close()
		ctx := context.Background()

		s1 := b.Subscribe(ctx)
		s2 := b.Subscribe(ctx)
		require.NoError(t, b.Broadcast(ctx, 7))

		for _, s := range []broadcast.Subscriber[int]{s1, s2} {
			v, err := broadcast.Next(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, 7, v)
		}
	})

	t.Run("slow subscriber keeps newest values", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](2)
		defer b.Close()
		ctx := context.Background()

		sub := b.Subscribe(ctx)
		for i := 1; i <= 5; i++ {
			require.NoError(t, b.Broadcast(ctx, i))
		}

		first, err := broadcast.Next(ctx, sub)
		require.NoError(t, err)
		second, err := broadcast.Next(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5}, []int{first, second})
	})

	t.Run("broadcast never blocks", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](1)
		defer b.Close()
		_ = b.Subscribe(context.Background())

		done := make(chan struct{})
		go func() {
			for i := range 1000 {
				_ = b.Broadcast(context.Background(), i)
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("broadcast blocked")
		}
	})
}

func TestMemoryBroadcaster_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("context cancel unsubscribes", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](1)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		require.Equal(t, 1, b.Len())

		cancel()
		require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)

		_, err := broadcast.Next(context.Background(), sub)
		assert.ErrorIs(t, err, broadcast.ErrClosed)
	})

	t.Run("subscriber close unsubscribes", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](1)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sub := b.Subscribe(ctx)
		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())

		require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("close ends all subscribers", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](1)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		subs := []broadcast.Subscriber[string]{b.Subscribe(ctx), b.Subscribe(context.Background())}
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())

		for _, s := range subs {
			_, ok := <-s.Receive()
			assert.False(t, ok)
		}

		late := b.Subscribe(context.Background())
		_, ok := <-late.Receive()
		assert.False(t, ok)
		assert.NoError(t, b.Broadcast(context.Background(), "ignored"))
	})

	t.Run("next honours context", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](1)
		defer b.Close()
		sub := b.Subscribe(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := broadcast.Next(ctx, sub)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestMemoryBroadcaster_Concurrent(t *testing.T) {
	t.Parallel()

	b := broadcast.NewMemoryBroadcaster[int](8)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = b.Subscribe(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = b.Broadcast(ctx, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, b.Len())
}
