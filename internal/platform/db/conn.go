package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthpool/riskpool/internal/platform/txn"
)

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn returns the transaction carried by ctx, falling back to the pool for
// reads issued outside a unit of work.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := txn.From(ctx); ok {
		if pgTx := tx.PG(); pgTx != nil {
			return pgTx
		}
	}
	return pool
}
