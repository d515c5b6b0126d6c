// Package redisstore persists settings in a Redis hash and announces
// changes on a pub/sub channel.
//
// Other writers must publish the namespace on the channel after changing the
// hash for watchers to notice.
package redisstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
)

var (
	ErrQuery    = errors.New("redisstore: command failed")
	ErrConflict = errors.New("redisstore: concurrent update conflict")
)

const maxTxRetries = 5

// Store is a settings.Store on a go-redis client.
type Store struct {
	client    redis.UniversalClient
	prefix    string
	namespace string
	log       *slog.Logger
	feed      *settings.Feed

	mu       sync.Mutex
	watching bool
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ settings.Store = (*Store)(nil)

type Option func(*Store)

// WithPrefix sets the key prefix shared by the hash and the channel.
func WithPrefix(p string) Option {
	return func(s *Store) {
		if p != "" {
			s.prefix = p
		}
	}
}

// WithNamespace isolates one settings profile from others under the same prefix.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:    client,
		prefix:    "tabloader",
		namespace: "default",
		feed:      settings.NewFeed(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, "settings.redisstore")
	return s
}

// Key is the hash holding the settings.
func (s *Store) Key() string {
	return s.prefix + ":settings:" + s.namespace
}

// Channel is the pub/sub channel carrying change announcements.
func (s *Store) Channel() string {
	return s.prefix + ":settings:changed"
}

func (s *Store) Load(ctx context.Context) (settings.Settings, error) {
	raw, err := s.client.HGetAll(ctx, s.Key()).Result()
	if err != nil {
		return settings.Default(), errors.Join(ErrQuery, err)
	}
	return settings.Parse(raw)
}

// Update merges under WATCH so a concurrent writer forces a retry instead of
// being overwritten.
func (s *Store) Update(ctx context.Context, values map[settings.Key]string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return settings.ErrStoreClosed
	}

	key := s.Key()
	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return errors.Join(ErrQuery, err)
		}
		current, _ := settings.Parse(raw)
		_, written, err := settings.Merge(current, values)
		if err != nil {
			return err
		}
		if len(written) == 0 {
			return nil
		}

		fields := make(map[string]any, len(written))
		for k, v := range written {
			fields[string(k)] = v
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.Publish(ctx, s.Channel(), s.namespace)
			return nil
		})
		if err != nil {
			return errors.Join(ErrQuery, err)
		}
		return nil
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// Watch subscribes to the change channel on first use.
func (s *Store) Watch(ctx context.Context) (<-chan settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, settings.ErrStoreClosed
	}
	ch := s.feed.Watch(ctx)
	if !s.watching {
		wctx, cancel := context.WithCancel(context.Background())
		sub := s.client.Subscribe(wctx, s.Channel())
		if _, err := sub.Receive(wctx); err != nil {
			cancel()
			_ = sub.Close()
			return nil, errors.Join(ErrQuery, err)
		}
		s.watching = true
		s.cancel = cancel
		go s.follow(wctx, sub)
	}
	return ch, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watching := s.watching
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if watching {
		<-s.done
	}
	return s.feed.Close()
}

func (s *Store) follow(ctx context.Context, sub *redis.PubSub) {
	defer close(s.done)
	defer sub.Close()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if msg.Payload != s.namespace {
				continue
			}
			current, err := s.Load(ctx)
			if err != nil {
				if errors.Is(err, ErrQuery) {
					s.log.Error("failed to reload settings after change", logger.Error(err))
					continue
				}
				s.log.Warn("stored settings contain invalid values", logger.Error(err))
			}
			s.feed.Publish(ctx, current)
		}
	}
}
