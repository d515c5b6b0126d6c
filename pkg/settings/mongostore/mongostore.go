// Package mongostore persists settings as one MongoDB document per
// namespace. Watchers follow a change stream when the deployment supports
// one and fall back to polling otherwise.
package mongostore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
)

var ErrQuery = errors.New("mongostore: query failed")

type document struct {
	ID        string            `bson:"_id"`
	Values    map[string]string `bson:"values"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// Store is a settings.Store on a MongoDB collection.
type Store struct {
	coll      *mongo.Collection
	namespace string
	interval  time.Duration
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

// WithNamespace selects the document holding this profile's settings.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithPollInterval sets the polling period used when change streams are unavailable.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
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

func New(coll *mongo.Collection, opts ...Option) *Store {
	s := &Store{
		coll:      coll,
		namespace: "default",
		interval:  2 * time.Second,
		feed:      settings.NewFeed(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, "settings.mongostore")
	return s
}

func (s *Store) Load(ctx context.Context) (settings.Settings, error) {
	doc, err := s.find(ctx)
	if err != nil {
		return settings.Default(), err
	}
	return settings.Parse(doc.Values)
}

func (s *Store) find(ctx context.Context) (document, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: s.namespace}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return document{ID: s.namespace}, nil
	}
	if err != nil {
		return document{}, errors.Join(ErrQuery, err)
	}
	return doc, nil
}

// Update sets only the written fields, so concurrent writers of different
// keys do not overwrite each other.
func (s *Store) Update(ctx context.Context, values map[settings.Key]string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return settings.ErrStoreClosed
	}

	current, err := s.Load(ctx)
	if errors.Is(err, ErrQuery) {
		return err
	}
	_, written, err := settings.Merge(current, values)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		return nil
	}

	set := bson.D{{Key: "updated_at", Value: time.Now().UTC()}}
	for k, v := range written {
		set = append(set, bson.E{Key: "values." + string(k), Value: v})
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: s.namespace}},
		bson.D{{Key: "$set", Value: set}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrQuery, err)
	}
	return nil
}

// Watch starts the change follower on first use.
func (s *Store) Watch(ctx context.Context) (<-chan settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, settings.ErrStoreClosed
	}
	ch := s.feed.Watch(ctx)
	if !s.watching {
		s.watching = true
		wctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.follow(wctx)
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

func (s *Store) follow(ctx context.Context) {
	defer close(s.done)

	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: s.namespace}}}}}
	for ctx.Err() == nil {
		cs, err := s.coll.Watch(ctx, pipeline)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Info("change streams unavailable, polling settings", logger.Error(err))
			s.poll(ctx)
			return
		}

		for cs.Next(ctx) {
			s.reload(ctx)
		}
		err = cs.Err()
		_ = cs.Close(context.WithoutCancel(ctx))
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("settings change stream ended, reopening", logger.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

func (s *Store) poll(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last time.Time
	if doc, err := s.find(ctx); err == nil {
		last = doc.UpdatedAt
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		doc, err := s.find(ctx)
		if err != nil {
			s.log.Error("failed to poll settings", logger.Error(err))
			continue
		}
		if doc.UpdatedAt.Equal(last) {
			continue
		}
		last = doc.UpdatedAt
		current, err := settings.Parse(doc.Values)
		if err != nil {
			s.log.Warn("stored settings contain invalid values", logger.Error(err))
		}
		s.feed.Publish(ctx, current)
	}
}

func (s *Store) reload(ctx context.Context) {
	current, err := s.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrQuery) {
			s.log.Error("failed to reload settings after change", logger.Error(err))
			return
		}
		s.log.Warn("stored settings contain invalid values", logger.Error(err))
	}
	s.feed.Publish(ctx, current)
}
