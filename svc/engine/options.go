package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/dmitrymomot/tabloader/pkg/settings"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger handed to every component. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMeter records metrics on meter instead of the global provider.
func WithMeter(m metric.Meter) Option {
	return func(e *Engine) {
		e.meter = m
	}
}

// WithWaitTimeout bounds every wait for a tab to finish loading, in both
// schedulers.
func WithWaitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.waitTimeout = d
		}
	}
}

// WithGrace sets the pause between two tabs opened from the creation queue.
func WithGrace(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.grace = &d
		}
	}
}

// WithOnSettings registers a callback run after settings were applied, and
// by SyncBrowser. It is used to push the settings the extension scripts need.
func WithOnSettings(fn func(ctx context.Context, s settings.Settings)) Option {
	return func(e *Engine) {
		e.onSettings = fn
	}
}
