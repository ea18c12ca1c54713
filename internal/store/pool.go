// Package store provides concrete persistence for the interfaces
// internal/ingestion/store.go names: a pgx-backed PostgresStore for
// production and an in-memory MemoryStore for tests and local/dev runs
// without a database, per §4.14's consumer-defined store pattern.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPool opens a Postgres connection pool, adapted from
// internal/persistence/databases/pool.go's OpenPool/newPgPool: same
// conservative fixed defaults, same startup ping, just moved out of the
// generic FullTextSearch/VectorStore/GraphDB factory and into this
// package's own domain-specific store.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
