// Package handler provides typed HTTP handlers for the control API.
//
// A HandlerFunc receives a Context and a request value filled by the
// configured binders, and returns a Response that renders itself:
//
//	type pauseRequest struct {
//		Paused bool `json:"paused"`
//	}
//
//	func pause(ctx handler.Context, req pauseRequest) handler.Response {
//		if err := eng.SetPaused(ctx, req.Paused); err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.Empty()
//	}
//
//	r.Post("/pause", handler.Wrap(pause, handler.WithBinder[pauseRequest](binder.JSON())))
//
// Binding and rendering errors go to the ErrorHandler, which by default
// answers with a JSON error body. HTTPError and validator.ValidationErrors
// choose the status code.
//
// SSE returns a streaming response for DataStar clients. The stream pushes
// signal patches until the handler returns or the client goes away.
package handler
