package tabs

import (
	"context"
	"strconv"
)

// ID identifies a browser tab. Browser tab ids are process-unique integers.
type ID int

func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// Status is the loading status reported by the browser for a tab.
type Status string

const (
	StatusLoading  Status = "loading"
	StatusComplete Status = "complete"
)

// Tab is a snapshot of a browser tab.
type Tab struct {
	ID          ID     `json:"id"`
	WindowID    int    `json:"window_id"`
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Active      bool   `json:"active"`
	Pinned      bool   `json:"pinned"`
	Discarded   bool   `json:"discarded"`
	Status      Status `json:"status,omitempty"`
	OpenerTabID *ID    `json:"opener_tab_id,omitempty"`
}

// CreateOptions describes a tab to be created.
type CreateOptions struct {
	URL         string `json:"url"`
	Active      bool   `json:"active"`
	Discarded   bool   `json:"discarded,omitempty"`
	OpenerTabID *ID    `json:"opener_tab_id,omitempty"`
}

// Query filters tabs. Nil fields are not applied.
type Query struct {
	Active    *bool `json:"active,omitempty"`
	Discarded *bool `json:"discarded,omitempty"`
	Pinned    *bool `json:"pinned,omitempty"`
	WindowID  *int  `json:"window_id,omitempty"`
}

// Matches reports whether the tab satisfies every non-nil field of the query.
func (q Query) Matches(t Tab) bool {
	if q.Active != nil && *q.Active != t.Active {
		return false
	}
	if q.Discarded != nil && *q.Discarded != t.Discarded {
		return false
	}
	if q.Pinned != nil && *q.Pinned != t.Pinned {
		return false
	}
	if q.WindowID != nil && *q.WindowID != t.WindowID {
		return false
	}
	return true
}

// Service is the browser's tab lifecycle API as seen by the schedulers.
// Implementations must be safe for concurrent use.
type Service interface {
	// Create opens a new tab.
	Create(ctx context.Context, opts CreateOptions) (Tab, error)

	// Discard unloads the tab's content while keeping it in the tab strip.
	// Discarding an already discarded tab is a no-op.
	Discard(ctx context.Context, id ID) error

	// Reload starts loading the tab. It returns once the browser accepted the
	// request, not when the page finished loading.
	Reload(ctx context.Context, id ID) error

	// Query lists tabs matching the filter.
	Query(ctx context.Context, q Query) ([]Tab, error)

	// Get returns a fresh snapshot of a single tab.
	Get(ctx context.Context, id ID) (Tab, error)
}

// Ptr is a small helper for building optional fields.
func Ptr[T any](v T) *T {
	return &v
}
