// Package postgresstorage implements domain.Storage over PostgreSQL via
// pgx/v5, instrumented with otelpgx query tracing — the teacher's own
// pairing of pgx + otelpgx in internal/adapter/repo/postgres, generalized
// from job/result repositories to the bridge's filter/upsert contract.
package postgresstorage

import (
	"context"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a pgx connection pool from dsn, with OpenTelemetry query
// tracing enabled, matching internal/adapter/repo/postgres.NewPool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithTrimSQLInSpanName())

	return pgxpool.NewWithConfig(ctx, cfg)
}
