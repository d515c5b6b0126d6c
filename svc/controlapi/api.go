package controlapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tabloader/handler"
	"github.com/dmitrymomot/tabloader/pkg/broadcast"
	"github.com/dmitrymomot/tabloader/pkg/clientip"
	"github.com/dmitrymomot/tabloader/pkg/httpserver"
	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/requestid"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/svc/engine"
	"github.com/dmitrymomot/tabloader/svc/loader"
	"github.com/dmitrymomot/tabloader/svc/presenter"
)

// Controller is the part of the engine the API drives.
type Controller interface {
	Status() engine.Status
	Queue() []loader.Entry
	Settings() settings.Settings
	UpdateSettings(ctx context.Context, values map[settings.Key]string) (settings.Settings, error)
	SetPaused(ctx context.Context, paused bool) error
	TogglePause(ctx context.Context) (bool, error)
	LoadNext(ctx context.Context) bool
	EmptyQueue(ctx context.Context)
	Resume(ctx context.Context) error
}

var _ Controller = (*engine.Engine)(nil)

type mount struct {
	path string
	h    http.Handler
}

// API serves the control endpoints.
type API struct {
	eng     Controller
	log     *slog.Logger
	updates broadcast.Broadcaster[presenter.Presentation]
	checks  []httpserver.Check
	mounts  []mount
	onError handler.ErrorHandler

	allowRemote bool
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// WithUpdates sets the presentation feed behind /api/stream. Without it
// the stream answers 503.
func WithUpdates(b broadcast.Broadcaster[presenter.Presentation]) Option {
	return func(a *API) {
		a.updates = b
	}
}

// WithReadinessChecks adds checks to /health/ready.
func WithReadinessChecks(checks ...httpserver.Check) Option {
	return func(a *API) {
		a.checks = append(a.checks, checks...)
	}
}

// WithMount serves h at path on the same router.
func WithMount(path string, h http.Handler) Option {
	return func(a *API) {
		if path != "" && h != nil {
			a.mounts = append(a.mounts, mount{path: path, h: h})
		}
	}
}

// WithAllowRemote lets non-loopback clients reach the API and the mounts.
// Only loopback clients are served by default.
func WithAllowRemote(allow bool) Option {
	return func(a *API) {
		a.allowRemote = allow
	}
}

func New(eng Controller, opts ...Option) *API {
	a := &API{eng: eng}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.ForComponent(a.log, "controlapi")
	a.onError = handler.NewErrorHandler(a.log)
	return a
}

// Handle builds the router.
func (a *API) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware)
	if !a.allowRemote {
		r.Use(clientip.LoopbackOnly(a.log))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", wrap(a, a.status))
		r.Get("/queue", wrap(a, a.queue))
		r.Post("/pause", wrap(a, a.pause, bindOptionalJSON[pauseRequest]()))
		r.Post("/next", wrap(a, a.next))
		r.Post("/empty", wrap(a, a.empty))
		r.Post("/resume", wrap(a, a.resume))
		r.Get("/settings", wrap(a, a.getSettings))
		r.Put("/settings", wrap(a, a.putSettings, bindJSON[settingsRequest]()))
		r.Get("/stream", wrap(a, a.stream))
	})

	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(a.log, a.checks...))

	for _, m := range a.mounts {
		r.Handle(m.path, m.h)
	}
	return r
}

func wrap[R any](a *API, h handler.HandlerFunc[R], opts ...handler.WrapOption[R]) http.HandlerFunc {
	return handler.Wrap(h, append([]handler.WrapOption[R]{handler.WithErrorHandler[R](a.onError)}, opts...)...)
}
