package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/dmitrymomot/tabloader"

// Metrics records scheduler activity with OpenTelemetry instruments. It
// implements loader.Metrics and creator.Metrics.
//
// Instruments:
//   - tabloader.tabs.discarded, tabloader.tabs.dropped
//   - tabloader.tabs.reloaded, tabloader.tabs.reload_failures
//   - tabloader.tabs.created, tabloader.tabs.create_failures
//   - tabloader.loads.active (up-down counter)
type Metrics struct {
	discarded    metric.Int64Counter
	dropped      metric.Int64Counter
	reloaded     metric.Int64Counter
	reloadFailed metric.Int64Counter
	created      metric.Int64Counter
	createFailed metric.Int64Counter
	activeLoads  metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on meter, or on the global provider
// when meter is nil. Instrument errors fall back to noop instruments.
func NewMetrics(meter metric.Meter) *Metrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{tab}"))
		return c
	}
	active, _ := meter.Int64UpDownCounter("tabloader.loads.active",
		metric.WithDescription("Tabs currently being reloaded by the scheduler"),
		metric.WithUnit("{tab}"),
	)

	return &Metrics{
		discarded:    counter("tabloader.tabs.discarded", "New background tabs discarded"),
		dropped:      counter("tabloader.tabs.dropped", "Discarded tabs not queued because the queue was full"),
		reloaded:     counter("tabloader.tabs.reloaded", "Reloads issued for queued tabs"),
		reloadFailed: counter("tabloader.tabs.reload_failures", "Reloads the browser rejected"),
		created:      counter("tabloader.tabs.created", "Tabs opened from the creation queue"),
		createFailed: counter("tabloader.tabs.create_failures", "Queued links the browser refused to open"),
		activeLoads:  active,
	}
}

func (m *Metrics) TabDiscarded(ctx context.Context) { m.discarded.Add(ctx, 1) }
func (m *Metrics) TabDropped(ctx context.Context)   { m.dropped.Add(ctx, 1) }
func (m *Metrics) ReloadIssued(ctx context.Context) { m.reloaded.Add(ctx, 1) }
func (m *Metrics) ReloadFailed(ctx context.Context) { m.reloadFailed.Add(ctx, 1) }
func (m *Metrics) TabCreated(ctx context.Context)   { m.created.Add(ctx, 1) }
func (m *Metrics) CreateFailed(ctx context.Context) { m.createFailed.Add(ctx, 1) }

func (m *Metrics) ActiveLoadsChanged(ctx context.Context, delta int) {
	m.activeLoads.Add(ctx, int64(delta))
}
