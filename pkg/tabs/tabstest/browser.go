// Package tabstest provides an in-memory browser for exercising code that
// depends on tabs.Service.
package tabstest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/tabloader/pkg/tabs"
)

// Call records a single service call.
type Call struct {
	Method string
	TabID  tabs.ID
	URL    string
	At     time.Time
}

// Browser is a fake tabs.Service. Created tabs emit a created event to the
// configured handler before Create returns, like a real browser does.
// Page loads never finish on their own: tests drive them with Complete.
type Browser struct {
	mu      sync.Mutex
	nextID  tabs.ID
	tabs    map[tabs.ID]tabs.Tab
	calls   []Call
	handler tabs.Handler

	reloadErr  map[tabs.ID]error
	discardErr map[tabs.ID]error
	createErr  func(url string) error
}

// NewBrowser creates an empty browser. Tab ids start at 1.
func NewBrowser() *Browser {
	return &Browser{
		nextID:     1,
		tabs:       make(map[tabs.ID]tabs.Tab),
		reloadErr:  make(map[tabs.ID]error),
		discardErr: make(map[tabs.ID]error),
	}
}

// SetHandler sets the receiver of emitted events.
func (b *Browser) SetHandler(h tabs.Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Open adds a tab without emitting an event and returns it.
func (b *Browser) Open(url string, active bool) tabs.Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := tabs.Tab{ID: b.nextID, WindowID: 1, URL: url, Active: active, Status: tabs.StatusLoading}
	b.nextID++
	b.tabs[t.ID] = t
	return t
}

// Spawn adds a tab like a user opening a link in the background: the tab
// is stored and its created event is emitted.
func (b *Browser) Spawn(ctx context.Context, url string) tabs.Tab {
	t := b.Open(url, false)

	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()

	if h != nil {
		h.HandleEvent(ctx, tabs.Created(t))
	}
	return t
}

// FailReload makes every Reload of id fail with err. A nil err clears it.
func (b *Browser) FailReload(id tabs.ID, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.reloadErr, id)
		return
	}
	b.reloadErr[id] = err
}

// FailDiscard makes every Discard of id fail with err. A nil err clears it.
func (b *Browser) FailDiscard(id tabs.ID, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.discardErr, id)
		return
	}
	b.discardErr[id] = err
}

// FailCreate installs a hook deciding whether Create fails for a url.
func (b *Browser) FailCreate(fn func(url string) error) {
	b.mu.Lock()
	b.createErr = fn
	b.mu.Unlock()
}

// Create implements tabs.Service.
func (b *Browser) Create(ctx context.Context, opts tabs.CreateOptions) (tabs.Tab, error) {
	b.mu.Lock()
	b.record("create", 0, opts.URL)
	if b.createErr != nil {
		if err := b.createErr(opts.URL); err != nil {
			b.mu.Unlock()
			return tabs.Tab{}, err
		}
	}
	t := tabs.Tab{
		ID:          b.nextID,
		WindowID:    1,
		URL:         opts.URL,
		Active:      opts.Active,
		Discarded:   opts.Discarded,
		Status:      tabs.StatusLoading,
		OpenerTabID: opts.OpenerTabID,
	}
	b.nextID++
	b.tabs[t.ID] = t
	h := b.handler
	b.mu.Unlock()

	if h != nil {
		h.HandleEvent(ctx, tabs.Created(t))
	}
	return t, nil
}

// Discard implements tabs.Service.
func (b *Browser) Discard(ctx context.Context, id tabs.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("discard", id, "")
	if err := b.discardErr[id]; err != nil {
		return err
	}
	t, ok := b.tabs[id]
	if !ok {
		return fmt.Errorf("discard %d: %w", id, tabs.ErrTabNotFound)
	}
	t.Discarded = true
	b.tabs[id] = t
	return nil
}

// Reload implements tabs.Service.
func (b *Browser) Reload(ctx context.Context, id tabs.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("reload", id, "")
	if err := b.reloadErr[id]; err != nil {
		return err
	}
	t, ok := b.tabs[id]
	if !ok {
		return fmt.Errorf("reload %d: %w", id, tabs.ErrTabNotFound)
	}
	t.Discarded = false
	t.Status = tabs.StatusLoading
	b.tabs[id] = t
	return nil
}

// Query implements tabs.Service.
func (b *Browser) Query(ctx context.Context, q tabs.Query) ([]tabs.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]tabs.Tab, 0, len(b.tabs))
	for _, t := range b.tabs {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b tabs.Tab) int { return int(a.ID - b.ID) })
	return out, nil
}

// Get implements tabs.Service.
func (b *Browser) Get(ctx context.Context, id tabs.ID) (tabs.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[id]
	if !ok {
		return tabs.Tab{}, fmt.Errorf("get %d: %w", id, tabs.ErrTabNotFound)
	}
	return t, nil
}

// Complete marks the tab as loaded and emits the updated event.
func (b *Browser) Complete(ctx context.Context, id tabs.ID) {
	b.mu.Lock()
	if t, ok := b.tabs[id]; ok {
		t.Status = tabs.StatusComplete
		b.tabs[id] = t
	}
	h := b.handler
	b.mu.Unlock()

	if h != nil {
		h.HandleEvent(ctx, tabs.Updated(id, tabs.StatusComplete))
	}
}

// Activate makes the tab active and emits the activated event.
func (b *Browser) Activate(ctx context.Context, id tabs.ID) {
	b.mu.Lock()
	for tid, t := range b.tabs {
		t.Active = tid == id
		if tid == id {
			t.Discarded = false
		}
		b.tabs[tid] = t
	}
	h := b.handler
	b.mu.Unlock()

	if h != nil {
		h.HandleEvent(ctx, tabs.Activated(id))
	}
}

// Close removes the tab and emits the removed event.
func (b *Browser) Close(ctx context.Context, id tabs.ID) {
	b.mu.Lock()
	delete(b.tabs, id)
	h := b.handler
	b.mu.Unlock()

	if h != nil {
		h.HandleEvent(ctx, tabs.Removed(id))
	}
}

// Drop removes the tab without emitting an event, like a notification lost
// on the way.
func (b *Browser) Drop(id tabs.ID) {
	b.mu.Lock()
	delete(b.tabs, id)
	b.mu.Unlock()
}

// Tab returns the current snapshot of a tab.
func (b *Browser) Tab(id tabs.ID) (tabs.Tab, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[id]
	return t, ok
}

// Calls returns every recorded call to method, in call order.
// An empty method returns all calls.
func (b *Browser) Calls(method string) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, 0, len(b.calls))
	for _, c := range b.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reloaded returns the tab ids passed to Reload, in call order.
func (b *Browser) Reloaded() []tabs.ID {
	calls := b.Calls("reload")
	ids := make([]tabs.ID, len(calls))
	for i, c := range calls {
		ids[i] = c.TabID
	}
	return ids
}

func (b *Browser) record(method string, id tabs.ID, url string) {
	b.calls = append(b.calls, Call{Method: method, TabID: id, URL: url, At: time.Now()})
}

var _ tabs.Service = (*Browser)(nil)
