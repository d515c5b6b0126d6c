// Package logger builds the process *slog.Logger and provides attribute
// helpers that keep log keys consistent across the schedulers, the bridge
// and the control API.
//
// New accepts functional options. WithEnvironment picks text output at debug
// level for development and JSON at info level for staging and production.
// WithContextValue and WithContextExtractors inject attributes from the
// context on every record, which the bridge uses to tag log lines with the
// message being processed.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "tabloader"),
//		logger.WithContextValue("message_id", bridge.MessageIDKey{}),
//	)
//	log.InfoContext(ctx, "tab queued",
//		logger.TabID(int(tab.ID)),
//		logger.QueueLength(n),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
