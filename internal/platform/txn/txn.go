// Package txn runs ledger operations as serialized, all-or-nothing units.
//
// Every mutating operation across the access, membership, pool and claims
// ledgers executes inside Runner.Run. Nested calls join the enclosing unit
// through a savepoint, so a payout triggered from a claim approval either
// completes with it or disappears with it.
package txn

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Runner executes fn as one serialized transaction.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Tx collects the side effects of one unit of work.
type Tx struct {
	pg    pgx.Tx
	undo  []func()
	after []func(context.Context)
}

type txContextKey struct{}

func withTx(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// From returns the transaction carried by ctx.
func From(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*Tx)
	return tx, ok && tx != nil
}

// PG returns the database transaction backing tx, or nil for memory units.
func (tx *Tx) PG() pgx.Tx {
	if tx == nil {
		return nil
	}
	return tx.pg
}

// OnRollback registers fn to restore in-memory state if the unit fails.
// Outside a unit the call is a no-op.
func OnRollback(ctx context.Context, fn func()) {
	if tx, ok := From(ctx); ok && fn != nil {
		tx.undo = append(tx.undo, fn)
	}
}

// AfterCommit defers fn until the outermost unit commits. Outside a unit fn
// runs immediately. Hooks run in registration order once the unit's lock is
// released, so hooks of different units may interleave.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if fn == nil {
		return
	}
	if tx, ok := From(ctx); ok {
		tx.after = append(tx.after, fn)
		return
	}
	fn(ctx)
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.after = nil
}

// merge folds a committed child unit into its parent.
func (tx *Tx) merge(child *Tx) {
	tx.undo = append(tx.undo, child.undo...)
	tx.after = append(tx.after, child.after...)
}

func (tx *Tx) runAfter(ctx context.Context) {
	for _, fn := range tx.after {
		fn(ctx)
	}
}

// call runs fn and converts a panic into a rollback before re-raising it.
func call(ctx context.Context, tx *Tx, fn func(context.Context) error, abort func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			if abort != nil {
				abort()
			}
			panic(r)
		}
	}()
	return fn(withTx(ctx, tx))
}
