// Package store is the sole durable writer for order state (spec §5),
// grounded on the teacher's internal/repository/*_repo_pg.go: pgxpool
// transactions, QueryRow/Exec/Query, RETURNING clauses for round-tripped
// generated columns.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, dsn)
}
