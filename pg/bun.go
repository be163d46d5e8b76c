// Package pg opens PostgreSQL connections for the docqueue store and classifies
// the errors they return. Queries are traced with OpenTelemetry and, in debug
// mode, logged through the docqueue logger.
package pg

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rise-and-shine/docqueue/meta"
	"github.com/rise-and-shine/docqueue/observability/logger"
	"github.com/rise-and-shine/docqueue/pg/hooks"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/extra/bunotel"
)

// NewBunDB opens a pgx pool and wraps it in a bun.DB with the tracing and debug hooks installed.
// The pool is closed by closing the returned DB.
func NewBunDB(cfg Config) (*bun.DB, error) {
	appName := cfg.ApplicationName
	if appName == "" {
		appName = meta.GetServiceName()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.dsn(appName))
	if err != nil {
		return nil, errx.Wrap(err)
	}
	poolCfg.MaxConns = cfg.PoolMaxConns
	poolCfg.MinConns = cfg.PoolMinConns
	poolCfg.MaxConnIdleTime = cfg.PoolMaxConnIdleTime
	poolCfg.MaxConnLifetime = cfg.PoolMaxConnLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	db := bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())

	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(cfg.Database)))
	if cfg.Debug {
		db.AddQueryHook(hooks.NewDebugHook(
			logger.Named("pg"),
			hooks.WithSlowQueryThreshold(cfg.SlowQueryThreshold),
		))
	}

	return db, nil
}

// Ping checks connectivity, retrying with backoff while the server comes up.
func Ping(ctx context.Context, db *bun.DB, attempts uint) error {
	err := retry.Do(
		func() error { return db.PingContext(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Named("pg").With("attempt", n+1, "error", err.Error()).Warn("[pg]: ping failed, retrying")
		}),
	)
	return errx.Wrap(err)
}
