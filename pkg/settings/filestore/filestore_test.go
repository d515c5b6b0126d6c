package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/settings/filestore"
	"github.com/dmitrymomot/tabloader/pkg/settings/settingstest"
)

func TestStore_Contract(t *testing.T) {
	settingstest.Run(t, func(t *testing.T) settings.Store {
		return filestore.New(filepath.Join(t.TempDir(), "settings.yaml"),
			filestore.WithPollInterval(20*time.Millisecond))
	})
}

func TestStore_WritesReadableYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s := filestore.New(path)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Update(context.Background(), map[settings.Key]string{
		settings.KeyLoadingDelay: "1200",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "loadingDelay: 1200")
	assert.Contains(t, string(data), "loadBehavior: queue-active")
}

func TestStore_ExternalEdit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := filestore.New(path, filestore.WithPollInterval(10*time.Millisecond))
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("queueLimit: 7\naltClickMode: queue\n"), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, 7, got.QueueLimit)
		assert.Equal(t, settings.AltClickQueue, got.AltClickMode)
	case <-time.After(2 * time.Second):
		t.Fatal("external edit not observed")
	}
}

func TestStore_ExternalEditNotified(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := filestore.New(path, filestore.WithPollInterval(time.Hour))
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("maxConcurrentTabs: 4\n"), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, 4, got.MaxConcurrentTabs)
	case <-time.After(2 * time.Second):
		t.Fatal("external edit not observed")
	}
}

func TestStore_PollsWhenDirMissing(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "later")
	path := filepath.Join(dir, "settings.yaml")
	s := filestore.New(path, filestore.WithPollInterval(10*time.Millisecond))
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("queueLimit: 9\n"), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, 9, got.QueueLimit)
	case <-time.After(2 * time.Second):
		t.Fatal("edit not observed by polling")
	}
}

func TestStore_MalformedFileFallsBack(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queueLimit: many\nmaxConcurrentTabs: 3\n"), 0o600))

	s := filestore.New(path)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Load(context.Background())
	require.ErrorIs(t, err, settings.ErrInvalidValue)
	assert.Equal(t, 25, got.QueueLimit)
	assert.Equal(t, 3, got.MaxConcurrentTabs)

	require.NoError(t, os.WriteFile(path, []byte(":::not yaml"), 0o600))
	got, err = s.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, settings.Default(), got)
}

func TestStore_Closed(t *testing.T) {
	t.Parallel()

	s := filestore.New(filepath.Join(t.TempDir(), "settings.yaml"))
	_, err := s.Watch(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.Update(context.Background(), map[settings.Key]string{settings.KeyIsPaused: "true"})
	assert.ErrorIs(t, err, settings.ErrStoreClosed)
}
