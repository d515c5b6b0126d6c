package presenter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/tabloader/pkg/broadcast"
	"github.com/dmitrymomot/tabloader/pkg/logger"
)

// Sink displays a presentation.
type Sink interface {
	Present(ctx context.Context, p Presentation) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, p Presentation) error

func (f SinkFunc) Present(ctx context.Context, p Presentation) error {
	return f(ctx, p)
}

// Multi pushes to every sink and joins their errors.
type Multi []Sink

func (m Multi) Present(ctx context.Context, p Presentation) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Present(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink logs every presentation at debug level.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Present(ctx context.Context, p Presentation) error {
	l := s.Log
	if l == nil {
		l = slog.Default()
	}
	l.DebugContext(ctx, "presentation changed",
		slog.String("badge", p.Badge.Text),
		slog.String("title", p.Title),
		logger.QueueLength(p.State.QueueLen),
		logger.ActiveLoads(p.State.ActiveLoads),
	)
	return nil
}

// BroadcastSink publishes presentations to subscribers such as live
// status streams.
type BroadcastSink struct {
	B broadcast.Broadcaster[Presentation]
}

func (s BroadcastSink) Present(ctx context.Context, p Presentation) error {
	return s.B.Broadcast(ctx, p)
}

// Context menu item ids shared with the extension.
const (
	MenuResume        = "resume"
	MenuKeepDiscarded = "keep-discarded"
	MenuListQueueURLs = "list-queue-urls"
)

// Visibility maps menu item ids to whether they are shown.
func (m Menu) Visibility() map[string]bool {
	return map[string]bool{
		MenuResume:        m.Resume,
		MenuKeepDiscarded: m.KeepDiscarded,
		MenuListQueueURLs: m.ListQueueURLs,
	}
}

// Toolbar is the browser toolbar button and its context menu.
type Toolbar interface {
	SetBadge(ctx context.Context, text, color string) error
	SetTitle(ctx context.Context, title string) error
	SetMenus(ctx context.Context, visible map[string]bool) error
}

// ToolbarSink pushes presentations to a toolbar. It stops at the first
// failure; the presenter retries the whole presentation on the next update.
type ToolbarSink struct {
	T Toolbar
}

func (s ToolbarSink) Present(ctx context.Context, p Presentation) error {
	if err := s.T.SetBadge(ctx, p.Badge.Text, p.Badge.Color); err != nil {
		return err
	}
	if err := s.T.SetTitle(ctx, p.Title); err != nil {
		return err
	}
	return s.T.SetMenus(ctx, p.Menu.Visibility())
}
