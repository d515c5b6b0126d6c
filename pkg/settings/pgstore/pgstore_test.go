package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/pg"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/settings/pgstore"
	"github.com/dmitrymomot/tabloader/pkg/settings/settingstest"
)

// Requires a reachable PostgreSQL: set TEST_PG_CONN_URL to run.
func TestStore_Contract(t *testing.T) {
	url := os.Getenv("TEST_PG_CONN_URL")
	if url == "" {
		t.Skip("TEST_PG_CONN_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := pg.Config{ConnectionString: url, RetryAttempts: 1, MigrationsTable: "tabloader_migrations"}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pgstore.Migrate(ctx, pool, cfg, nil))

	settingstest.Run(t, func(t *testing.T) settings.Store {
		ns := "test-" + uuid.NewString()
		t.Cleanup(func() {
			_, _ = pool.Exec(context.Background(), `DELETE FROM tabloader_settings WHERE namespace = $1`, ns)
		})
		return pgstore.New(pool, pgstore.WithNamespace(ns))
	})
}
