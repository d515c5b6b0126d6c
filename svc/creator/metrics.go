package creator

import "context"

// Metrics receives creation measurements.
type Metrics interface {
	TabCreated(ctx context.Context)
	CreateFailed(ctx context.Context)
}

type noopMetrics struct{}

func (noopMetrics) TabCreated(context.Context)   {}
func (noopMetrics) CreateFailed(context.Context) {}
