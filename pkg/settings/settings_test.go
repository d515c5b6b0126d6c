package settings_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/settings/settingstest"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	d := settings.Default()
	assert.Equal(t, 1, d.MaxConcurrentTabs)
	assert.Equal(t, 25, d.QueueLimit)
	assert.Equal(t, settings.QueueActive, d.LoadBehavior)
	assert.False(t, d.IsPaused)
	assert.Zero(t, d.DiscardingDelay)
	assert.Zero(t, d.LoadingDelay)
	assert.Equal(t, settings.AltClickNone, d.AltClickMode)
	assert.NoError(t, d.Validate())
	assert.True(t, d.QueueActive())
	assert.False(t, d.Delayed())
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	s := settings.Settings{
		MaxConcurrentTabs: 0,
		QueueLimit:        1000,
		LoadBehavior:      "sometimes",
		DiscardingDelay:   -time.Second,
		LoadingDelay:      time.Minute,
		AltClickMode:      "shift",
	}.Normalize()

	assert.Equal(t, 1, s.MaxConcurrentTabs)
	assert.Equal(t, 500, s.QueueLimit)
	assert.Equal(t, settings.QueueActive, s.LoadBehavior)
	assert.Zero(t, s.DiscardingDelay)
	assert.Equal(t, 5*time.Second, s.LoadingDelay)
	assert.Equal(t, settings.AltClickNone, s.AltClickMode)
	assert.NoError(t, s.Validate())

	low := settings.Settings{QueueLimit: 1}.Normalize()
	assert.Equal(t, 3, low.QueueLimit)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s := settings.Default()
	s.QueueLimit = 2
	s.AltClickMode = "bogus"

	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, settings.ErrOutOfRange)
	assert.ErrorIs(t, err, settings.ErrInvalidValue)
	assert.Contains(t, err.Error(), "queueLimit")
	assert.Contains(t, err.Error(), "altClickMode")
}

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     settings.Key
		value   string
		wantErr error
		check   func(t *testing.T, s settings.Settings)
	}{
		{"max concurrent", settings.KeyMaxConcurrentTabs, "3", nil, func(t *testing.T, s settings.Settings) {
			assert.Equal(t, 3, s.MaxConcurrentTabs)
		}},
		{"loading delay ms", settings.KeyLoadingDelay, "1500", nil, func(t *testing.T, s settings.Settings) {
			assert.Equal(t, 1500*time.Millisecond, s.LoadingDelay)
		}},
		{"paused", settings.KeyIsPaused, "true", nil, func(t *testing.T, s settings.Settings) {
			assert.True(t, s.IsPaused)
		}},
		{"behavior", settings.KeyLoadBehavior, "stay-discarded", nil, func(t *testing.T, s settings.Settings) {
			assert.Equal(t, settings.StayDiscarded, s.LoadBehavior)
		}},
		{"alt click", settings.KeyAltClickMode, "queue", nil, func(t *testing.T, s settings.Settings) {
			assert.Equal(t, settings.AltClickQueue, s.AltClickMode)
		}},
		{"queue limit too small", settings.KeyQueueLimit, "2", settings.ErrOutOfRange, nil},
		{"queue limit too large", settings.KeyQueueLimit, "501", settings.ErrOutOfRange, nil},
		{"max concurrent zero", settings.KeyMaxConcurrentTabs, "0", settings.ErrOutOfRange, nil},
		{"discarding delay too long", settings.KeyDiscardingDelay, "1001", settings.ErrOutOfRange, nil},
		{"not a number", settings.KeyQueueLimit, "ten", settings.ErrInvalidValue, nil},
		{"unknown mode", settings.KeyAltClickMode, "ctrl", settings.ErrInvalidValue, nil},
		{"unknown key", settings.Key("theme"), "dark", settings.ErrUnknownKey, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := settings.Default()
			err := s.Apply(tt.key, tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, settings.Default(), s, "failed apply must not modify settings")
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("round trips raw form", func(t *testing.T) {
		t.Parallel()

		in := settings.Settings{
			MaxConcurrentTabs: 4,
			QueueLimit:        100,
			LoadBehavior:      settings.StayDiscarded,
			IsPaused:          true,
			DiscardingDelay:   300 * time.Millisecond,
			LoadingDelay:      2 * time.Second,
			AltClickMode:      settings.AltClickDiscarded,
		}
		raw := in.Raw()
		assert.Equal(t, "300", raw["discardingDelay"])
		assert.Equal(t, "2000", raw["loadingDelay"])

		out, err := settings.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("lenient on bad values", func(t *testing.T) {
		t.Parallel()

		out, err := settings.Parse(map[string]string{
			"queueLimit":        "lots",
			"maxConcurrentTabs": "0",
			"loadingDelay":      "9000",
			"unrelated":         "x",
		})
		require.ErrorIs(t, err, settings.ErrInvalidValue)
		assert.Equal(t, 25, out.QueueLimit)
		assert.Equal(t, 1, out.MaxConcurrentTabs)
		assert.Equal(t, 5*time.Second, out.LoadingDelay)
	})

	t.Run("empty is default", func(t *testing.T) {
		t.Parallel()

		out, err := settings.Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, settings.Default(), out)
	})
}

func TestDiff(t *testing.T) {
	t.Parallel()

	a := settings.Default()
	b := a
	b.QueueLimit = 3
	b.IsPaused = true

	changed := settings.Diff(a, b)
	assert.Equal(t, []settings.Key{settings.KeyQueueLimit, settings.KeyIsPaused}, changed)
	assert.True(t, settings.Contains(changed, settings.KeyIsPaused))
	assert.False(t, settings.Contains(changed, settings.KeyLoadingDelay))
	assert.Empty(t, settings.Diff(a, a))
}

func TestMerge(t *testing.T) {
	t.Parallel()

	next, written, err := settings.Merge(settings.Default(), map[settings.Key]string{
		settings.KeyLoadingDelay: " 0100 ",
	})
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, next.LoadingDelay)
	assert.Equal(t, map[settings.Key]string{settings.KeyLoadingDelay: "100"}, written)

	_, _, err = settings.Merge(settings.Default(), map[settings.Key]string{"theme": "dark"})
	assert.ErrorIs(t, err, settings.ErrUnknownKey)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	s := settings.Default()
	s.LoadingDelay = 750 * time.Millisecond

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"maxConcurrentTabs": 1,
		"queueLimit": 25,
		"loadBehavior": "queue-active",
		"isPaused": false,
		"discardingDelay": 0,
		"loadingDelay": 750,
		"altClickMode": "none"
	}`, string(data))

	var back settings.Settings
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)

	partial := settings.Default()
	require.NoError(t, json.Unmarshal([]byte(`{"queueLimit": 40}`), &partial))
	assert.Equal(t, 40, partial.QueueLimit)
	assert.Equal(t, settings.QueueActive, partial.LoadBehavior)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	settingstest.Run(t, func(t *testing.T) settings.Store {
		return settings.NewMemoryStore(settings.Default())
	})
}

func TestMemoryStore_Closed(t *testing.T) {
	t.Parallel()

	s := settings.NewMemoryStore(settings.Default())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Update(t.Context(), map[settings.Key]string{settings.KeyIsPaused: "true"}), settings.ErrStoreClosed)
	_, err := s.Watch(t.Context())
	assert.ErrorIs(t, err, settings.ErrStoreClosed)
}
