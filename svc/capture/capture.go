package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/pkg/validator"
)

// ActionCreateDiscardedTab is the only action the content script sends.
const ActionCreateDiscardedTab = "createDiscardedTab"

// AllowedSchemes lists the URL schemes a captured link may use.
var AllowedSchemes = []string{"http", "https", "ftp", "file"}

// Message is sent by the content script.
type Message struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

// Route tells what happened to a message.
type Route string

const (
	Ignored Route = "ignored"
	Opened  Route = "opened"
	Queued  Route = "queued"
)

// Queue accepts links for sequential creation.
type Queue interface {
	Enqueue(ctx context.Context, url string, opener *tabs.ID)
}

// Router dispatches captured links.
type Router struct {
	svc   tabs.Service
	queue Queue
	mode  func() settings.AltClickMode
	log   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a router. mode is read for every message so setting changes
// apply immediately.
func New(svc tabs.Service, queue Queue, mode func() settings.AltClickMode, opts ...Option) *Router {
	r := &Router{svc: svc, queue: queue, mode: mode}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logger.ForComponent(r.log, "capture")
	return r
}

// Handle routes msg sent from the tab sender. A nil sender means the tab
// is unknown; the link is then opened without an opener.
func (r *Router) Handle(ctx context.Context, msg Message, sender *tabs.ID) (Route, error) {
	if msg.Action != ActionCreateDiscardedTab {
		return Ignored, fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}

	log := r.log.With(logger.URL(msg.URL), logger.OpenerTabID(openerAttr(sender)))

	mode := settings.AltClickNone
	if r.mode != nil {
		mode = r.mode()
	}
	if mode == settings.AltClickNone {
		log.Debug("alt+click capture disabled, link ignored")
		return Ignored, nil
	}

	if err := validator.Apply(
		validator.Required("url", msg.URL),
		validator.URLWithScheme("url", msg.URL, AllowedSchemes),
	); err != nil {
		log.Warn("captured link rejected", logger.Error(err))
		return Ignored, errors.Join(ErrInvalidURL, err)
	}

	switch mode {
	case settings.AltClickQueue:
		r.queue.Enqueue(ctx, msg.URL, sender)
		log.Debug("captured link queued for creation")
		return Queued, nil
	default:
		tab, err := r.svc.Create(ctx, tabs.CreateOptions{
			URL:         msg.URL,
			Discarded:   true,
			OpenerTabID: sender,
		})
		if err != nil {
			log.Warn("failed to open captured link", logger.Error(err))
			return Ignored, errors.Join(ErrCreateFailed, err)
		}
		log.Debug("captured link opened discarded", logger.TabID(int(tab.ID)))
		return Opened, nil
	}
}

func openerAttr(id *tabs.ID) *int {
	if id == nil {
		return nil
	}
	v := int(*id)
	return &v
}
