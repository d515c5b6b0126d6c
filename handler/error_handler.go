package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/requestid"
)

// NewErrorHandler logs the failure with the request id and answers with
// the JSON error body. Client errors are logged at warn level.
func NewErrorHandler(log *slog.Logger) ErrorHandler {
	log = logger.ForComponent(log, "error_handler")

	return func(ctx Context, err error) {
		r := ctx.Request()
		status := StatusOf(err)

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if IsDataStar(r) && status < http.StatusInternalServerError {
			// The stream was never opened; a plain status is all a DataStar
			// client can act on.
			http.Error(ctx.ResponseWriter(), http.StatusText(status), status)
			return
		}
		DefaultErrorHandler(ctx, err)
	}
}
