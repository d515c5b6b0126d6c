package presenter_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/broadcast"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/svc/presenter"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state presenter.State
		badge presenter.Badge
		title string
		menu  presenter.Menu
	}{
		{
			name:  "paused",
			state: presenter.State{Paused: true, Behavior: settings.QueueActive, QueueLen: 4},
			badge: presenter.Badge{Text: "II", Color: presenter.ColorPaused},
			title: presenter.TitlePaused,
			menu:  presenter.Menu{Resume: true, KeepDiscarded: true, ListQueueURLs: true},
		},
		{
			name:  "paused wins over stay discarded",
			state: presenter.State{Paused: true, Behavior: settings.StayDiscarded},
			badge: presenter.Badge{Text: "II", Color: presenter.ColorPaused},
			title: presenter.TitlePaused,
		},
		{
			name:  "stay discarded",
			state: presenter.State{Behavior: settings.StayDiscarded, CreationLen: 2},
			badge: presenter.Badge{Text: "X", Color: presenter.ColorStayDiscarded},
			title: presenter.TitleActive,
		},
		{
			name:  "reload queue",
			state: presenter.State{Behavior: settings.QueueActive, QueueLen: 7, CreationLen: 3, ActiveLoads: 1},
			badge: presenter.Badge{Text: "7", Color: presenter.ColorActive},
			title: presenter.TitleActive,
			menu:  presenter.Menu{Resume: true, KeepDiscarded: true, ListQueueURLs: true},
		},
		{
			name:  "only creation queue",
			state: presenter.State{Behavior: settings.QueueActive, CreationLen: 3},
			badge: presenter.Badge{Text: "3", Color: presenter.ColorCreating},
			title: presenter.TitleActive,
		},
		{
			name:  "idle",
			state: presenter.State{Behavior: settings.QueueActive},
			badge: presenter.Badge{Text: "0", Color: presenter.ColorActive},
			title: presenter.TitleActive,
		},
		{
			name:  "loads in flight offer resume",
			state: presenter.State{Behavior: settings.QueueActive, ActiveLoads: 2},
			badge: presenter.Badge{Text: "0", Color: presenter.ColorActive},
			title: presenter.TitleActive,
			menu:  presenter.Menu{Resume: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := presenter.Render(tt.state)
			assert.Equal(t, tt.badge, p.Badge)
			assert.Equal(t, tt.title, p.Title)
			assert.Equal(t, tt.menu, p.Menu)
			assert.Equal(t, tt.state, p.State)
		})
	}
}

type recorder struct {
	mu   sync.Mutex
	seen []presenter.Presentation
	fail atomic.Bool
}

func (r *recorder) Present(_ context.Context, p presenter.Presentation) error {
	if r.fail.Load() {
		return errors.New("browser gone")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, p)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func (r *recorder) last() presenter.Presentation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[len(r.seen)-1]
}

func run(t *testing.T, p *presenter.Presenter) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestPresenter_PushesLatestState(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	p := presenter.New(rec)
	run(t, p)

	for i := range 10 {
		p.Update(presenter.State{Behavior: settings.QueueActive, QueueLen: i})
	}

	require.Eventually(t, func() bool {
		return rec.count() > 0 && rec.last().Badge.Text == "9"
	}, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, rec.count(), 10)
	assert.Equal(t, "9", p.Current().Badge.Text)
}

func TestPresenter_SuppressesDuplicates(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	p := presenter.New(rec)
	run(t, p)

	st := presenter.State{Behavior: settings.QueueActive, QueueLen: 2}
	p.Update(st)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	p.Update(st)
	p.Update(st)
	assert.Never(t, func() bool { return rec.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	p.Invalidate()
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPresenter_RetriesAfterFailure(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	rec.fail.Store(true)
	p := presenter.New(rec)
	run(t, p)

	st := presenter.State{Paused: true}
	p.Update(st)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.count())

	rec.fail.Store(false)
	p.Update(st)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "II", rec.last().Badge.Text)
}

func TestMulti(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ok := &recorder{}
	broken := &recorder{}
	broken.fail.Store(true)

	err := presenter.Multi{ok, nil, broken, presenter.LogSink{}}.Present(ctx, presenter.Render(presenter.State{}))
	assert.Error(t, err)
	assert.Equal(t, 1, ok.count())
}

func TestBroadcastSink(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := broadcast.NewMemoryBroadcaster[presenter.Presentation](1)
	defer b.Close()
	sub := b.Subscribe(ctx)

	var calls atomic.Int64
	sink := presenter.Multi{
		presenter.BroadcastSink{B: b},
		presenter.SinkFunc(func(context.Context, presenter.Presentation) error {
			calls.Add(1)
			return nil
		}),
	}
	want := presenter.Render(presenter.State{Behavior: settings.QueueActive, QueueLen: 1})
	require.NoError(t, sink.Present(ctx, want))

	got, err := broadcast.Next(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.EqualValues(t, 1, calls.Load())
}

type fakeToolbar struct {
	mu    sync.Mutex
	calls []string
	badge string
	menus map[string]bool
	fail  error
}

func (f *fakeToolbar) SetBadge(_ context.Context, text, color string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "badge")
	if f.fail != nil {
		return f.fail
	}
	f.badge = text + " " + color
	return nil
}

func (f *fakeToolbar) SetTitle(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "title")
	return nil
}

func (f *fakeToolbar) SetMenus(_ context.Context, visible map[string]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "menus")
	f.menus = visible
	return nil
}

func TestToolbarSink(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("pushes badge title and menus", func(t *testing.T) {
		t.Parallel()
		tb := &fakeToolbar{}
		p := presenter.Render(presenter.State{Behavior: settings.QueueActive, QueueLen: 2})

		require.NoError(t, presenter.ToolbarSink{T: tb}.Present(ctx, p))
		assert.Equal(t, []string{"badge", "title", "menus"}, tb.calls)
		assert.Equal(t, "2 "+presenter.ColorActive, tb.badge)
		assert.Equal(t, map[string]bool{
			presenter.MenuResume:        true,
			presenter.MenuKeepDiscarded: true,
			presenter.MenuListQueueURLs: true,
		}, tb.menus)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("not connected")
		tb := &fakeToolbar{fail: boom}

		err := presenter.ToolbarSink{T: tb}.Present(ctx, presenter.Render(presenter.State{}))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"badge"}, tb.calls)
	})
}
