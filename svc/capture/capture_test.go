package capture_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/pkg/tabs/tabstest"
	"github.com/dmitrymomot/tabloader/svc/capture"
)

type queued struct {
	url    string
	opener *tabs.ID
}

type fakeQueue struct {
	mu    sync.Mutex
	links []queued
}

func (q *fakeQueue) Enqueue(_ context.Context, url string, opener *tabs.ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.links = append(q.links, queued{url: url, opener: opener})
}

func (q *fakeQueue) all() []queued {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queued(nil), q.links...)
}

func newRouter(mode settings.AltClickMode) (*capture.Router, *tabstest.Browser, *fakeQueue) {
	b := tabstest.NewBrowser()
	q := &fakeQueue{}
	r := capture.New(b, q, func() settings.AltClickMode { return mode })
	return r, b, q
}

func link(url string) capture.Message {
	return capture.Message{Action: capture.ActionCreateDiscardedTab, URL: url}
}

func TestRouter_Modes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sender := tabs.ID(3)

	t.Run("none ignores links", func(t *testing.T) {
		t.Parallel()
		r, b, q := newRouter(settings.AltClickNone)

		route, err := r.Handle(ctx, link("https://example.com"), &sender)
		require.NoError(t, err)
		assert.Equal(t, capture.Ignored, route)
		assert.Empty(t, b.Calls("create"))
		assert.Empty(t, q.all())
	})

	t.Run("discarded opens a discarded background tab", func(t *testing.T) {
		t.Parallel()
		r, b, q := newRouter(settings.AltClickDiscarded)

		route, err := r.Handle(ctx, link("https://example.com/article"), &sender)
		require.NoError(t, err)
		assert.Equal(t, capture.Opened, route)
		assert.Empty(t, q.all())

		all, err := b.Query(ctx, tabs.Query{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "https://example.com/article", all[0].URL)
		assert.True(t, all[0].Discarded)
		assert.False(t, all[0].Active)
		require.NotNil(t, all[0].OpenerTabID)
		assert.Equal(t, sender, *all[0].OpenerTabID)
	})

	t.Run("queue hands the link to the creation scheduler", func(t *testing.T) {
		t.Parallel()
		r, b, q := newRouter(settings.AltClickQueue)

		route, err := r.Handle(ctx, link("https://example.com/a"), &sender)
		require.NoError(t, err)
		assert.Equal(t, capture.Queued, route)
		assert.Empty(t, b.Calls("create"))

		links := q.all()
		require.Len(t, links, 1)
		assert.Equal(t, "https://example.com/a", links[0].url)
		assert.Equal(t, &sender, links[0].opener)
	})
}

func TestRouter_ModeIsReadPerMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := tabstest.NewBrowser()
	q := &fakeQueue{}
	mode := settings.AltClickNone
	r := capture.New(b, q, func() settings.AltClickMode { return mode })

	route, err := r.Handle(ctx, link("https://example.com"), nil)
	require.NoError(t, err)
	assert.Equal(t, capture.Ignored, route)

	mode = settings.AltClickQueue
	route, err = r.Handle(ctx, link("https://example.com"), nil)
	require.NoError(t, err)
	assert.Equal(t, capture.Queued, route)
	assert.Len(t, q.all(), 1)
}

func TestRouter_Rejects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown action", func(t *testing.T) {
		t.Parallel()
		r, _, _ := newRouter(settings.AltClickQueue)

		_, err := r.Handle(ctx, capture.Message{Action: "closeTab", URL: "https://example.com"}, nil)
		assert.ErrorIs(t, err, capture.ErrUnknownAction)
	})

	for _, raw := range []string{"", "javascript:alert(1)", "not a url", "/relative"} {
		t.Run("invalid url "+raw, func(t *testing.T) {
			t.Parallel()
			r, b, q := newRouter(settings.AltClickDiscarded)

			route, err := r.Handle(ctx, link(raw), nil)
			assert.ErrorIs(t, err, capture.ErrInvalidURL)
			assert.Equal(t, capture.Ignored, route)
			assert.Empty(t, b.Calls("create"))
			assert.Empty(t, q.all())
		})
	}

	t.Run("create failure", func(t *testing.T) {
		t.Parallel()
		r, b, _ := newRouter(settings.AltClickDiscarded)
		boom := errors.New("window closed")
		b.FailCreate(func(string) error { return boom })

		route, err := r.Handle(ctx, link("https://example.com"), nil)
		assert.ErrorIs(t, err, capture.ErrCreateFailed)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, capture.Ignored, route)
	})
}
