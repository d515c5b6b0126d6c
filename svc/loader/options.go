package loader

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/pkg/tabwait"
)

// DefaultWaitTimeout bounds how long a reloaded tab may hold its slot.
const DefaultWaitTimeout = 45 * time.Second

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSettings sets the initial configuration. It is normalized.
func WithSettings(cfg settings.Settings) Option {
	return func(s *Scheduler) {
		s.cfg = cfg.Normalize()
	}
}

// WithOnChange registers a callback invoked after every observable state
// change. It runs without the scheduler lock held.
func WithOnChange(fn func()) Option {
	return func(s *Scheduler) {
		s.onChange = fn
	}
}

// WithWaitTimeout bounds how long a reloaded tab may hold its slot before
// the next one is started. It applies in both delayed and burst mode.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

// WithWaiter shares a wait registry. The caller must then feed it tab
// events; without this option the scheduler feeds its own registry.
func WithWaiter(r *tabwait.Registry) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.waiter = r
			s.ownWaiter = false
		}
	}
}

// WithMetrics sets the metrics recorder. A nil recorder is ignored.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSkip registers a predicate for created tabs that must not be queued,
// such as tabs opened by the creation scheduler.
func WithSkip(fn func(tabs.Tab) bool) Option {
	return func(s *Scheduler) {
		s.skip = fn
	}
}
