package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tabloader/pkg/config"
	"github.com/dmitrymomot/tabloader/pkg/httpserver"
	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/mongo"
	"github.com/dmitrymomot/tabloader/pkg/pg"
	"github.com/dmitrymomot/tabloader/pkg/redis"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/settings/filestore"
	"github.com/dmitrymomot/tabloader/pkg/settings/mongostore"
	"github.com/dmitrymomot/tabloader/pkg/settings/pgstore"
	"github.com/dmitrymomot/tabloader/pkg/settings/redisstore"
)

// Settings backends selectable with SETTINGS_BACKEND.
const (
	backendMemory   = "memory"
	backendFile     = "file"
	backendRedis    = "redis"
	backendPostgres = "postgres"
	backendMongo    = "mongo"
)

type storeConfig struct {
	Backend         string        `env:"SETTINGS_BACKEND" envDefault:"memory"`
	File            string        `env:"SETTINGS_FILE" envDefault:"tabloader.yaml"`
	Namespace       string        `env:"SETTINGS_NAMESPACE" envDefault:"default"`
	MongoCollection string        `env:"SETTINGS_MONGO_COLLECTION" envDefault:"settings"`
	PollInterval    time.Duration `env:"SETTINGS_POLL_INTERVAL" envDefault:"2s"`
}

type backend struct {
	store settings.Store
	check httpserver.Check
	close func()
}

func openStore(ctx context.Context, cfg storeConfig, log *slog.Logger) (*backend, error) {
	log = logger.ForComponent(log, "settings")

	switch cfg.Backend {
	case backendMemory, "":
		s := settings.NewMemoryStore(settings.Default())
		return &backend{store: s, close: func() { _ = s.Close() }}, nil

	case backendFile:
		s := filestore.New(cfg.File,
			filestore.WithPollInterval(cfg.PollInterval),
			filestore.WithLogger(log),
		)
		return &backend{store: s, close: func() { _ = s.Close() }}, nil

	case backendRedis:
		var rc redis.Config
		if err := config.Load(&rc); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rc)
		if err != nil {
			return nil, err
		}
		s := redisstore.New(client,
			redisstore.WithPrefix(rc.KeyPrefix),
			redisstore.WithNamespace(cfg.Namespace),
			redisstore.WithLogger(log),
		)
		return &backend{
			store: s,
			check: redis.Healthcheck(client),
			close: func() {
				_ = s.Close()
				_ = client.Close()
			},
		}, nil

	case backendPostgres:
		var pc pg.Config
		if err := config.Load(&pc); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pc)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool, pc, log); err != nil {
			pool.Close()
			return nil, err
		}
		s := pgstore.New(pool,
			pgstore.WithNamespace(cfg.Namespace),
			pgstore.WithLogger(log),
		)
		return &backend{
			store: s,
			check: pg.Healthcheck(pool),
			close: func() {
				_ = s.Close()
				pool.Close()
			},
		}, nil

	case backendMongo:
		var mc mongo.Config
		if err := config.Load(&mc); err != nil {
			return nil, err
		}
		client, err := mongo.New(ctx, mc)
		if err != nil {
			return nil, err
		}
		s := mongostore.New(client.Database(mc.Database).Collection(cfg.MongoCollection),
			mongostore.WithNamespace(cfg.Namespace),
			mongostore.WithPollInterval(cfg.PollInterval),
			mongostore.WithLogger(log),
		)
		return &backend{
			store: s,
			check: mongo.Healthcheck(client),
			close: func() {
				_ = s.Close()
				dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(dctx)
			},
		}, nil
	}

	return nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
}
