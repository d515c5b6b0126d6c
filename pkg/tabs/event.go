package tabs

import (
	"context"
	"sync"
)

// EventType names a tab lifecycle notification.
type EventType string

const (
	EventCreated   EventType = "tab.created"
	EventUpdated   EventType = "tab.updated"
	EventActivated EventType = "tab.activated"
	EventRemoved   EventType = "tab.removed"
)

// Event is a single tab lifecycle notification.
// Tab is set for EventCreated, Status for EventUpdated.
type Event struct {
	Type   EventType `json:"type"`
	TabID  ID        `json:"tab_id"`
	Tab    *Tab      `json:"tab,omitempty"`
	Status Status    `json:"status,omitempty"`
}

// Validate checks that the fields required by the event type are present.
func (e Event) Validate() error {
	switch e.Type {
	case EventCreated:
		if e.Tab == nil {
			return ErrInvalidEvent
		}
	case EventUpdated, EventActivated, EventRemoved:
	default:
		return ErrInvalidEvent
	}
	return nil
}

// Created builds a created event for the tab.
func Created(t Tab) Event {
	return Event{Type: EventCreated, TabID: t.ID, Tab: &t}
}

// Updated builds an updated event carrying a status change.
func Updated(id ID, status Status) Event {
	return Event{Type: EventUpdated, TabID: id, Status: status}
}

// Activated builds an activated event.
func Activated(id ID) Event {
	return Event{Type: EventActivated, TabID: id}
}

// Removed builds a removed event.
func Removed(id ID) Event {
	return Event{Type: EventRemoved, TabID: id}
}

// Handler receives tab events.
type Handler interface {
	HandleEvent(ctx context.Context, e Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, e Event)

func (f HandlerFunc) HandleEvent(ctx context.Context, e Event) {
	f(ctx, e)
}

// Router dispatches events to the handlers registered for their type,
// in registration order. Handlers run synchronously on the caller's goroutine.
type Router struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[EventType][]Handler)}
}

// On registers h for events of type t. Nil handlers are ignored.
func (r *Router) On(t EventType, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = append(r.handlers[t], h)
}

// HandleEvent implements Handler so routers can be nested or handed to a transport.
func (r *Router) HandleEvent(ctx context.Context, e Event) {
	if e.Validate() != nil {
		return
	}

	r.mu.RLock()
	hs := r.handlers[e.Type]
	r.mu.RUnlock()

	for _, h := range hs {
		h.HandleEvent(ctx, e)
	}
}
