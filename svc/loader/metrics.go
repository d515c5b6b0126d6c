package loader

import "context"

// Metrics receives scheduler measurements.
type Metrics interface {
	TabDiscarded(ctx context.Context)
	TabDropped(ctx context.Context)
	ReloadIssued(ctx context.Context)
	ReloadFailed(ctx context.Context)
	ActiveLoadsChanged(ctx context.Context, delta int)
}

type noopMetrics struct{}

func (noopMetrics) TabDiscarded(context.Context)            {}
func (noopMetrics) TabDropped(context.Context)              {}
func (noopMetrics) ReloadIssued(context.Context)            {}
func (noopMetrics) ReloadFailed(context.Context)            {}
func (noopMetrics) ActiveLoadsChanged(context.Context, int) {}
