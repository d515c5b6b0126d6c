package broadcast

import (
	"context"
	"sync"
)

// Subscriber receives values from a Broadcaster.
type Subscriber[T any] interface {
	// Receive returns the channel values are delivered on. It is closed when
	// the subscriber or its broadcaster is closed.
	Receive() <-chan T

	// Close releases the subscriber. It is idempotent.
	Close() error
}

// Broadcaster fans values out to every subscriber without blocking the sender.
type Broadcaster[T any] interface {
	// Subscribe registers a subscriber that lives until ctx is done or Close is called.
	Subscribe(ctx context.Context) Subscriber[T]

	// Broadcast delivers v to all subscribers.
	Broadcast(ctx context.Context, v T) error

	// Close closes the broadcaster and every subscriber.
	Close() error
}

// subscriber keeps the newest values: when its buffer is full the oldest
// pending value is dropped to make room.
type subscriber[T any] struct {
	mu     sync.Mutex
	ch     chan T
	closed bool
	done   chan struct{}
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{
		ch:   make(chan T, bufferSize),
		done: make(chan struct{}),
	}
}

func (s *subscriber[T]) Receive() <-chan T {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
		close(s.done)
	}
	return nil
}

// send reports whether the subscriber is still open. Delivery never blocks.
func (s *subscriber[T]) send(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	for {
		select {
		case s.ch <- v:
			return true
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Next waits for the next value on sub. It returns ErrClosed once the
// subscriber is closed and ctx.Err() when ctx is done first.
func Next[T any](ctx context.Context, sub Subscriber[T]) (T, error) {
	var zero T
	select {
	case v, ok := <-sub.Receive():
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
