package creator

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/tabloader/pkg/tabwait"
)

const (
	// DefaultGrace is the pause between two creations.
	DefaultGrace = 200 * time.Millisecond
	// DefaultWaitTimeout bounds the wait for a created tab to finish loading.
	DefaultWaitTimeout = 45 * time.Second
)

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

// WithGrace sets the pause between two creations. Zero disables it.
func WithGrace(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.grace = d
		}
	}
}

// WithWaitTimeout bounds the wait for a created tab to finish loading.
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

// WithPaused installs the pause switch consulted before every creation.
func WithPaused(fn func() bool) Option {
	return func(s *Scheduler) {
		s.paused = fn
	}
}

// WithOnChange registers a callback invoked after the queue changed.
// It runs without the scheduler lock held.
func WithOnChange(fn func()) Option {
	return func(s *Scheduler) {
		s.onChange = fn
	}
}
