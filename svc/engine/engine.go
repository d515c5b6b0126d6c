package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/pkg/tabwait"
	"github.com/dmitrymomot/tabloader/svc/capture"
	"github.com/dmitrymomot/tabloader/svc/creator"
	"github.com/dmitrymomot/tabloader/svc/loader"
	"github.com/dmitrymomot/tabloader/svc/presenter"
)

// Engine owns both schedulers and keeps them in sync with the settings store.
type Engine struct {
	store       settings.Store
	log         *slog.Logger
	meter       metric.Meter
	waitTimeout time.Duration
	grace       *time.Duration
	onSettings  func(ctx context.Context, s settings.Settings)

	waiter    *tabwait.Registry
	loader    *loader.Scheduler
	creator   *creator.Scheduler
	capture   *capture.Router
	presenter *presenter.Presenter

	// mu serializes settings changes so concurrent updates do not interleave
	// their read-modify-apply steps.
	mu sync.Mutex

	closeOnce sync.Once
}

// New builds an engine on top of the browser tab service. Nothing runs
// until Run is called.
func New(svc tabs.Service, store settings.Store, sink presenter.Sink, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		waitTimeout: loader.DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.ForComponent(e.log, "engine")
	m := NewMetrics(e.meter)
	e.waiter = tabwait.NewRegistry()
	e.presenter = presenter.New(sink, presenter.WithLogger(e.log))

	creatorOpts := []creator.Option{
		creator.WithLogger(e.log),
		creator.WithWaiter(e.waiter),
		creator.WithWaitTimeout(e.waitTimeout),
		creator.WithMetrics(m),
		creator.WithPaused(e.paused),
		creator.WithOnChange(e.refresh),
	}
	if e.grace != nil {
		creatorOpts = append(creatorOpts, creator.WithGrace(*e.grace))
	}
	e.creator = creator.New(svc, creatorOpts...)

	e.loader = loader.New(svc,
		loader.WithLogger(e.log),
		loader.WithWaiter(e.waiter),
		loader.WithWaitTimeout(e.waitTimeout),
		loader.WithMetrics(m),
		loader.WithSkip(e.creator.Owns),
		loader.WithOnChange(e.refresh),
	)
	e.capture = capture.New(svc, e.creator, e.altClickMode, capture.WithLogger(e.log))
	return e
}

// Run loads the settings, follows the store's change feed and pushes the
// presentation until ctx is done. It then stops both schedulers.
func (e *Engine) Run(ctx context.Context) error {
	defer e.Close()

	cfg, err := e.store.Load(ctx)
	if err != nil {
		e.log.Error("failed to load settings, using fallback values", logger.Error(err))
	}
	e.apply(ctx, cfg)

	feed, err := e.store.Watch(ctx)
	if err != nil {
		e.log.Error("settings change feed unavailable, live updates disabled", logger.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.presenter.Run(ctx) })
	if feed != nil {
		g.Go(func() error {
			e.follow(ctx, feed)
			return nil
		})
	}
	return g.Wait()
}

// Close stops both schedulers. Run calls it on exit.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.creator.Close()
		e.loader.Close()
	})
}

func (e *Engine) follow(ctx context.Context, feed <-chan settings.Settings) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-feed:
			if !ok {
				e.log.Warn("settings change feed closed")
				return
			}
			e.apply(ctx, s)
		}
	}
}

// apply installs s and restarts whatever the change allows to progress.
func (e *Engine) apply(ctx context.Context, s settings.Settings) {
	e.mu.Lock()
	changed := e.loader.Apply(ctx, s)
	e.mu.Unlock()

	e.afterChange(ctx, changed)
}

func (e *Engine) afterChange(ctx context.Context, changed []settings.Key) {
	if len(changed) > 0 {
		keys := make([]string, len(changed))
		for i, k := range changed {
			keys[i] = string(k)
		}
		e.log.Info("settings applied", slog.Any("keys", keys))
	}
	e.creator.Drive(ctx)
	e.refresh()
	e.pushSettings(ctx)
}

func (e *Engine) pushSettings(ctx context.Context) {
	if e.onSettings != nil {
		e.onSettings(ctx, e.loader.Settings())
	}
}

// HandleEvent routes a browser tab event. The wait registry sees it before
// the load scheduler.
func (e *Engine) HandleEvent(ctx context.Context, ev tabs.Event) {
	if ev.Validate() != nil {
		e.log.Warn("invalid tab event dropped", logger.Event(string(ev.Type)))
		return
	}
	e.waiter.HandleEvent(ctx, ev)
	e.loader.HandleEvent(ctx, ev)
}

// SyncBrowser re-sends everything the browser displays or depends on and
// resumes both queues, which stop after a failed browser call. Call it after
// the extension (re)connected.
func (e *Engine) SyncBrowser(ctx context.Context) {
	e.presenter.Invalidate()
	e.pushSettings(ctx)
	e.loader.Drive(ctx)
	e.creator.Drive(ctx)
}

// Settings returns the settings in effect.
func (e *Engine) Settings() settings.Settings {
	return e.loader.Settings()
}

// Presentation returns what the toolbar currently shows.
func (e *Engine) Presentation() presenter.Presentation {
	return e.presenter.Current()
}

func (e *Engine) refresh() {
	snap := e.loader.Snapshot()
	e.presenter.Update(presenter.State{
		Paused:      snap.Paused,
		Behavior:    snap.Behavior,
		QueueLen:    snap.QueueLength,
		CreationLen: e.creator.Len(),
		ActiveLoads: snap.ActiveLoads,
	})
}

func (e *Engine) paused() bool {
	return e.loader.Settings().IsPaused
}

func (e *Engine) altClickMode() settings.AltClickMode {
	return e.loader.Settings().AltClickMode
}
