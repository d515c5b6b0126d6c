package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

const (
	// DataStarAcceptHeader is the Accept value sent by DataStar clients.
	DataStarAcceptHeader = "text/event-stream"

	// DataStarQueryParam carries the client signals on GET requests.
	DataStarQueryParam = "datastar"
)

// IsDataStar reports whether r comes from a DataStar client.
func IsDataStar(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), DataStarAcceptHeader) {
		return true
	}
	if r.URL.Query().Has(DataStarQueryParam) {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/x-datastar")
}

// StreamContext is a Context with an open SSE connection.
type StreamContext interface {
	Context

	// SendSignals patches the client signals with the given values.
	SendSignals(signals map[string]any) error

	// SendJSONSignals patches the client signals with v marshaled to a
	// JSON object.
	SendJSONSignals(v any) error
}

// SSEHandler runs for the lifetime of the stream. Returning ends it.
type SSEHandler func(ctx StreamContext) error

type sseResponse struct {
	handler SSEHandler
}

type streamContext struct {
	Context
	sse *datastar.ServerSentEventGenerator
}

func (c *streamContext) SendSignals(signals map[string]any) error {
	return c.SendJSONSignals(signals)
}

func (c *streamContext) SendJSONSignals(v any) error {
	if c.sse == nil {
		return ErrSSENotInitialized
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.sse.PatchSignals(data)
}

// Render rejects non DataStar requests with 400.
func (s sseResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if !IsDataStar(r) {
		return NewHTTPError(http.StatusBadRequest, "sse_requires_datastar")
	}
	return s.handler(&streamContext{
		Context: NewContext(w, r),
		sse:     datastar.NewSSE(w, r),
	})
}

// SSE creates a streaming response running fn.
func SSE(fn SSEHandler) Response {
	return sseResponse{handler: fn}
}
