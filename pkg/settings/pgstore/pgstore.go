// Package pgstore persists settings in PostgreSQL. A trigger raises a
// NOTIFY on every row change, so edits from any client reach watchers.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/pg"
	"github.com/dmitrymomot/tabloader/pkg/settings"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Channel is the NOTIFY channel raised by the settings trigger.
const Channel = "tabloader_settings"

var ErrQuery = errors.New("pgstore: query failed")

// Migrate creates the settings table and its notification trigger.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	return pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
}

// Store is a settings.Store on a pgx pool.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
	log       *slog.Logger
	backoff   time.Duration
	feed      *settings.Feed

	mu        sync.Mutex
	listening bool
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ settings.Store = (*Store)(nil)

type Option func(*Store)

// WithNamespace isolates one settings profile from others in the same table.
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

// WithReconnectBackoff sets the pause before re-establishing a lost LISTEN connection.
func WithReconnectBackoff(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.backoff = d
		}
	}
}

func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:      pool,
		namespace: "default",
		backoff:   time.Second,
		feed:      settings.NewFeed(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, "settings.pgstore")
	return s
}

func (s *Store) Load(ctx context.Context) (settings.Settings, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM tabloader_settings WHERE namespace = $1`, s.namespace)
	if err != nil {
		return settings.Default(), errors.Join(ErrQuery, err)
	}

	raw := make(map[string]string)
	var k, v string
	_, err = pgx.ForEachRow(rows, []any{&k, &v}, func() error {
		raw[k] = v
		return nil
	})
	if err != nil {
		return settings.Default(), errors.Join(ErrQuery, err)
	}
	return settings.Parse(raw)
}

// Update writes all values in one transaction. Rows are locked first so
// concurrent updates merge against a consistent base.
func (s *Store) Update(ctx context.Context, values map[settings.Key]string) error {
	if s.isClosed() {
		return settings.ErrStoreClosed
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT key, value FROM tabloader_settings WHERE namespace = $1 FOR UPDATE`, s.namespace)
		if err != nil {
			return errors.Join(ErrQuery, err)
		}
		raw := make(map[string]string)
		var k, v string
		if _, err := pgx.ForEachRow(rows, []any{&k, &v}, func() error {
			raw[k] = v
			return nil
		}); err != nil {
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
		batch := &pgx.Batch{}
		for key, value := range written {
			batch.Queue(`INSERT INTO tabloader_settings (namespace, key, value, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
				s.namespace, string(key), value)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Join(ErrQuery, err)
		}
		return nil
	})
}

// Watch starts the LISTEN loop on first use.
func (s *Store) Watch(ctx context.Context) (<-chan settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, settings.ErrStoreClosed
	}
	ch := s.feed.Watch(ctx)
	if !s.listening {
		s.listening = true
		lctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.listen(lctx)
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
	listening := s.listening
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if listening {
		<-s.done
	}
	return s.feed.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) listen(ctx context.Context) {
	defer close(s.done)

	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("settings notification listener lost, reconnecting", logger.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.backoff):
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Catch up on anything written while the listener was down.
	s.reload(ctx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload != s.namespace {
			continue
		}
		s.reload(ctx)
	}
}

func (s *Store) reload(ctx context.Context) {
	current, err := s.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrQuery) {
			s.log.Error("failed to reload settings after notification", logger.Error(err))
			return
		}
		s.log.Warn("stored settings contain invalid values", logger.Error(err))
	}
	s.feed.Publish(ctx, current)
}
