package presenter

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
)

const (
	ColorPaused        = "#ff9500"
	ColorStayDiscarded = "#9e9e9e"
	ColorActive        = "#4CAF50"
	ColorCreating      = "#2196F3"

	TitlePaused = "Tab Loader (Paused)"
	TitleActive = "Tab Loader (Active)"
)

// State is the scheduler state the presentation depends on.
type State struct {
	Paused      bool                  `json:"paused"`
	Behavior    settings.LoadBehavior `json:"behavior"`
	QueueLen    int                   `json:"queue_length"`
	CreationLen int                   `json:"creation_length"`
	ActiveLoads int                   `json:"active_loads"`
}

type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Menu holds the visibility of the context menu items.
type Menu struct {
	Resume        bool `json:"resume"`
	KeepDiscarded bool `json:"keep_discarded"`
	ListQueueURLs bool `json:"list_queue_urls"`
}

// Presentation is everything pushed to the toolbar, plus the state it was
// rendered from.
type Presentation struct {
	Badge Badge  `json:"badge"`
	Title string `json:"title"`
	Menu  Menu   `json:"menu"`
	State State  `json:"state"`
}

// Render maps state to its presentation.
func Render(s State) Presentation {
	p := Presentation{State: s, Title: TitleActive}
	if s.Paused {
		p.Title = TitlePaused
	}

	switch {
	case s.Paused:
		p.Badge = Badge{Text: "II", Color: ColorPaused}
	case s.Behavior == settings.StayDiscarded:
		p.Badge = Badge{Text: "X", Color: ColorStayDiscarded}
	case s.QueueLen == 0 && s.CreationLen > 0:
		p.Badge = Badge{Text: strconv.Itoa(s.CreationLen), Color: ColorCreating}
	default:
		p.Badge = Badge{Text: strconv.Itoa(s.QueueLen), Color: ColorActive}
	}

	active := s.Behavior != settings.StayDiscarded
	p.Menu = Menu{
		Resume:        active && (s.Paused || s.QueueLen > 0 || s.ActiveLoads > 0),
		KeepDiscarded: active && s.QueueLen > 0,
		ListQueueURLs: s.QueueLen > 0,
	}
	return p
}

// Presenter pushes rendered state to a sink, latest state wins.
type Presenter struct {
	sink Sink
	log  *slog.Logger
	wake chan struct{}

	mu    sync.Mutex
	state State
	dirty bool
	last  Presentation
	sent  bool
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a presenter. Nothing is pushed until Run is started.
func New(sink Sink, opts ...Option) *Presenter {
	p := &Presenter{sink: sink, wake: make(chan struct{}, 1)}
	for _, opt := range opts {
		opt(p)
	}
	p.log = logger.ForComponent(p.log, "presenter")
	return p
}

// Update records the latest state and schedules a push. It never blocks.
func (p *Presenter) Update(s State) {
	p.mu.Lock()
	p.state = s
	p.dirty = true
	p.mu.Unlock()
	p.signal()
}

// Invalidate forces the next push even if nothing changed, e.g. after the
// browser reconnected and lost what it displayed.
func (p *Presenter) Invalidate() {
	p.mu.Lock()
	p.sent = false
	p.dirty = true
	p.mu.Unlock()
	p.signal()
}

// Current renders the latest recorded state.
func (p *Presenter) Current() Presentation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Render(p.state)
}

// Run pushes presentations until ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.wake:
			p.flush(ctx)
		}
	}
}

func (p *Presenter) flush(ctx context.Context) {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	p.dirty = false
	out := Render(p.state)
	skip := p.sent && out == p.last
	p.mu.Unlock()

	if skip {
		return
	}
	if err := p.sink.Present(ctx, out); err != nil {
		p.log.Warn("failed to push presentation", logger.Error(err))
		p.mu.Lock()
		p.sent = false
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	p.last = out
	p.sent = true
	p.mu.Unlock()
}

func (p *Presenter) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
