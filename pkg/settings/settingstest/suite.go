// Package settingstest holds a behavioural test suite every settings.Store
// implementation must pass.
package settingstest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/settings"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) settings.Store

// WatchTimeout bounds how long the suite waits for a change notification.
var WatchTimeout = 5 * time.Second

// Run exercises the Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("empty store loads defaults", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		got, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, settings.Default(), got)
	})

	t.Run("update persists", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		ctx := context.Background()

		require.NoError(t, s.Update(ctx, map[settings.Key]string{
			settings.KeyQueueLimit:   "10",
			settings.KeyLoadingDelay: "250",
			settings.KeyIsPaused:     "true",
		}))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, got.QueueLimit)
		assert.Equal(t, 250*time.Millisecond, got.LoadingDelay)
		assert.True(t, got.IsPaused)
		assert.Equal(t, settings.Default().MaxConcurrentTabs, got.MaxConcurrentTabs)
	})

	t.Run("invalid update writes nothing", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		ctx := context.Background()

		err := s.Update(ctx, map[settings.Key]string{
			settings.KeyQueueLimit:       "2",
			settings.KeyMaxConcurrentTabs: "4",
		})
		require.ErrorIs(t, err, settings.ErrOutOfRange)

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, settings.Default(), got)
	})

	t.Run("watch observes updates", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := s.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, map[settings.Key]string{
			settings.KeyLoadBehavior: string(settings.StayDiscarded),
		}))

		deadline := time.After(WatchTimeout)
		for {
			select {
			case got, ok := <-ch:
				require.True(t, ok, "watch channel closed early")
				if got.LoadBehavior == settings.StayDiscarded {
					return
				}
			case <-deadline:
				t.Fatal("no change notification")
			}
		}
	})

	t.Run("watch ends with context", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		ch, err := s.Watch(ctx)
		require.NoError(t, err)
		cancel()

		deadline := time.After(WatchTimeout)
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("watch channel not closed after cancel")
			}
		}
	})
}
