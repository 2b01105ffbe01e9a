package txn

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ledgerLockKey is the advisory lock shared by every riskpool process.
const ledgerLockKey int64 = 0x7269736b706f6f6c

// Postgres runs units inside serializable transactions. A process mutex and a
// transaction-scoped advisory lock impose a single total order across
// processes sharing the database.
type Postgres struct {
	pool *pgxpool.Pool
	mu   sync.Mutex
}

// NewPostgres constructs a Postgres runner.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Run executes fn as a unit, joining the enclosing unit through a savepoint.
func (p *Postgres) Run(ctx context.Context, fn func(context.Context) error) error {
	if parent, ok := From(ctx); ok {
		return p.nested(ctx, parent, fn)
	}
	if p == nil || p.pool == nil {
		return fmt.Errorf("txn: postgres runner not initialised")
	}

	p.mu.Lock()
	tx, err := p.root(ctx, fn)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	tx.runAfter(ctx)
	return nil
}

func (p *Postgres) root(ctx context.Context, fn func(context.Context) error) (*Tx, error) {
	pgTx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("txn: begin: %w", err)
	}
	abort := func() { _ = pgTx.Rollback(context.WithoutCancel(ctx)) }
	if _, err := pgTx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
		abort()
		return nil, fmt.Errorf("txn: advisory lock: %w", err)
	}
	tx := &Tx{pg: pgTx}
	if err := call(ctx, tx, fn, abort); err != nil {
		tx.rollback()
		abort()
		return nil, err
	}
	if err := pgTx.Commit(ctx); err != nil {
		tx.rollback()
		return nil, fmt.Errorf("txn: commit: %w", err)
	}
	return tx, nil
}

func (p *Postgres) nested(ctx context.Context, parent *Tx, fn func(context.Context) error) error {
	if parent.pg == nil {
		return fmt.Errorf("txn: postgres unit nested in memory unit")
	}
	savepoint, err := parent.pg.Begin(ctx)
	if err != nil {
		return fmt.Errorf("txn: savepoint: %w", err)
	}
	abort := func() { _ = savepoint.Rollback(context.WithoutCancel(ctx)) }
	child := &Tx{pg: savepoint}
	if err := call(ctx, child, fn, abort); err != nil {
		child.rollback()
		abort()
		return err
	}
	if err := savepoint.Commit(ctx); err != nil {
		child.rollback()
		return fmt.Errorf("txn: release savepoint: %w", err)
	}
	parent.merge(child)
	return nil
}
