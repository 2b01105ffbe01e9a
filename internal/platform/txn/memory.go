package txn

import (
	"context"
	"sync"
)

// Memory serializes units with a process-wide mutex and rolls back through
// the undo journal registered by in-memory stores.
type Memory struct {
	mu sync.Mutex
}

// NewMemory constructs a Memory runner.
func NewMemory() *Memory {
	return &Memory{}
}

// Run executes fn as a unit, joining the enclosing unit when present.
func (m *Memory) Run(ctx context.Context, fn func(context.Context) error) error {
	if parent, ok := From(ctx); ok {
		child := &Tx{pg: parent.pg}
		if err := call(ctx, child, fn, nil); err != nil {
			child.rollback()
			return err
		}
		parent.merge(child)
		return nil
	}

	tx := &Tx{}
	m.mu.Lock()
	err := func() error {
		defer m.mu.Unlock()
		if err := call(ctx, tx, fn, nil); err != nil {
			tx.rollback()
			return err
		}
		return nil
	}()
	if err != nil {
		return err
	}
	tx.runAfter(ctx)
	return nil
}
