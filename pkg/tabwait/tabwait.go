// Package tabwait lets a goroutine suspend until a specific tab finishes
// loading, is closed, or a deadline passes, whichever happens first.
//
// A Wait is registered before the action that will eventually resolve it (for
// example before issuing a reload), so a fast completion is never missed.
// Every Wait is removed from its Registry on every exit path: resolution,
// timeout, context cancellation or an explicit Stop.
//
//	reg := tabwait.NewRegistry()
//	router.On(tabs.EventUpdated, reg)
//	router.On(tabs.EventRemoved, reg)
//
//	w := reg.Watch(tabID)
//	if err := svc.Reload(ctx, tabID); err != nil {
//		w.Stop()
//		return err
//	}
//	switch w.Wait(ctx, 45*time.Second) {
//	case tabwait.Completed, tabwait.Removed:
//	case tabwait.TimedOut:
//	}
package tabwait

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/tabloader/pkg/tabs"
)

// Outcome is how a Wait was resolved.
type Outcome int

const (
	Completed Outcome = iota + 1
	Removed
	TimedOut
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Removed:
		return "removed"
	case TimedOut:
		return "timed_out"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Registry tracks pending waits per tab. It implements tabs.Handler and must
// receive updated and removed events.
type Registry struct {
	mu    sync.Mutex
	waits map[tabs.ID]map[*Wait]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{waits: make(map[tabs.ID]map[*Wait]struct{})}
}

// Watch registers a one-shot wait for the tab.
func (r *Registry) Watch(id tabs.ID) *Wait {
	w := &Wait{reg: r, id: id, ch: make(chan Outcome, 1)}

	r.mu.Lock()
	set, ok := r.waits[id]
	if !ok {
		set = make(map[*Wait]struct{})
		r.waits[id] = set
	}
	set[w] = struct{}{}
	r.mu.Unlock()

	return w
}

// HandleEvent resolves the waits of the event's tab.
// Updates other than status=complete are ignored.
func (r *Registry) HandleEvent(_ context.Context, e tabs.Event) {
	switch e.Type {
	case tabs.EventUpdated:
		if e.Status == tabs.StatusComplete {
			r.resolve(e.TabID, Completed)
		}
	case tabs.EventRemoved:
		r.resolve(e.TabID, Removed)
	}
}

// Pending returns the number of registered waits.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, set := range r.waits {
		n += len(set)
	}
	return n
}

func (r *Registry) resolve(id tabs.ID, o Outcome) {
	r.mu.Lock()
	set := r.waits[id]
	delete(r.waits, id)
	r.mu.Unlock()

	for w := range set {
		w.deliver(o)
	}
}

func (r *Registry) remove(w *Wait) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.waits[w.id]
	if !ok {
		return
	}
	delete(set, w)
	if len(set) == 0 {
		delete(r.waits, w.id)
	}
}

// Wait is a single pending wait on a tab.
type Wait struct {
	reg  *Registry
	id   tabs.ID
	ch   chan Outcome
	once sync.Once
}

// TabID returns the tab being waited on.
func (w *Wait) TabID() tabs.ID {
	return w.id
}

// Wait blocks until the tab completes or is removed, the timeout elapses or
// ctx is done. A timeout <= 0 means no deadline other than ctx.
func (w *Wait) Wait(ctx context.Context, timeout time.Duration) Outcome {
	defer w.Stop()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case o := <-w.ch:
		return o
	case <-timer:
		return TimedOut
	case <-ctx.Done():
		return Canceled
	}
}

// Stop unregisters the wait. Safe to call more than once.
func (w *Wait) Stop() {
	w.once.Do(func() {
		w.reg.remove(w)
	})
}

func (w *Wait) deliver(o Outcome) {
	select {
	case w.ch <- o:
	default:
	}
}

// Delay sleeps for d or until ctx is done. It reports whether the full delay elapsed.
func Delay(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
