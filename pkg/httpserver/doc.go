// Package httpserver runs the local HTTP listener that serves the control
// API and the extension bridge.
//
// Run listens, serves until the context is cancelled, and then shuts down
// within the configured deadline. Long-lived connections that net/http does
// not track after a hijack, such as the bridge WebSocket, are closed through
// WithOnShutdown hooks.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithOnShutdown(func() { _ = bridge.Close() }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Liveness and Readiness build probe handlers; readiness runs every Check
// with the request context.
//
// Run wraps listen failures with ErrStart and Shutdown wraps shutdown failures
// with ErrShutdown.
package httpserver
