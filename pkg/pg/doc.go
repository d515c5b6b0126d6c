// Package pg opens PostgreSQL connection pools with pgx/v5 and applies goose
// migrations from an fs.FS.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// Config is read from PG_* environment variables. Connect retries with a
// delay that grows by RetryInterval per attempt and honours ctx.
package pg
