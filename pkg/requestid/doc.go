// Package requestid correlates log records that belong to one unit of
// work: an HTTP request to the control API or a frame received from the
// browser extension.
//
// Middleware reuses a well-formed X-Request-ID header or generates a new
// UUID, echoes it in the response and stores it in the request context.
// The bridge stores the envelope msg_id the same way, so engine logs for
// a tab event carry the id of the frame that caused them.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
package requestid
