package requestid

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tabloader/pkg/logger"
)

// LoggerExtractor adds the id from the context to log records.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}
}
