package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrymomot/tabloader/pkg/broadcast"
)

// Store persists settings and announces changes.
type Store interface {
	// Load returns the current settings. On a read or decode failure it still
	// returns the best usable value alongside the error.
	Load(ctx context.Context) (Settings, error)

	// Update validates and writes the given keys. Nothing is written when any
	// value is rejected.
	Update(ctx context.Context, values map[Key]string) error

	// Watch delivers a fresh snapshot after every change until ctx is done.
	Watch(ctx context.Context) (<-chan Settings, error)

	Close() error
}

// Merge applies values on top of base with the same rules as Settings.Apply
// and returns the result with the canonical string form of each written key.
func Merge(base Settings, values map[Key]string) (Settings, map[Key]string, error) {
	next := base
	var errs []error
	for k, v := range values {
		if !k.Valid() {
			errs = append(errs, errors.Join(ErrUnknownKey, errors.New(string(k))))
			continue
		}
		if err := next.Apply(k, v); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return base, nil, err
	}

	written := make(map[Key]string, len(values))
	for k := range values {
		written[k] = next.Get(k)
	}
	return next, written, nil
}

// Feed fans settings snapshots out to watchers. Backends embed it.
type Feed struct {
	b *broadcast.MemoryBroadcaster[Settings]
}

func NewFeed() *Feed {
	return &Feed{b: broadcast.NewMemoryBroadcaster[Settings](1)}
}

// Publish delivers s to every watcher.
func (f *Feed) Publish(ctx context.Context, s Settings) {
	_ = f.b.Broadcast(ctx, s)
}

// Watch subscribes until ctx is done.
func (f *Feed) Watch(ctx context.Context) <-chan Settings {
	return f.b.Subscribe(ctx).Receive()
}

func (f *Feed) Close() error {
	return f.b.Close()
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	raw    map[string]string
	feed   *Feed
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store seeded with initial.
func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{raw: initial.Raw(), feed: NewFeed()}
}

func (m *MemoryStore) Load(context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Parse(m.raw)
}

func (m *MemoryStore) Update(ctx context.Context, values map[Key]string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrStoreClosed
	}
	current, _ := Parse(m.raw)
	next, written, err := Merge(current, values)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	for k, v := range written {
		m.raw[string(k)] = v
	}
	m.feed.Publish(ctx, next)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Watch(ctx context.Context) (<-chan Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	return m.feed.Watch(ctx), nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.feed.Close()
}
