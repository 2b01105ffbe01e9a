package pool

import (
	"context"
	"sync"

	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

// MemoryRepository keeps the account in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	account Account
	payouts map[shared.Principal]shared.Amount
}

// NewMemoryRepository constructs an empty pool store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{payouts: make(map[shared.Principal]shared.Amount)}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) LoadAccount(context.Context) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account, nil
}

func (r *MemoryRepository) SaveAccount(ctx context.Context, a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.account
	r.account = a
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.account = prev
	})
	return nil
}

func (r *MemoryRepository) CreditPayout(ctx context.Context, recipient shared.Principal, amount shared.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.payouts[recipient]
	next, err := prev.Add(amount)
	if err != nil {
		return err
	}
	r.payouts[recipient] = next
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			r.payouts[recipient] = prev
			return
		}
		delete(r.payouts, recipient)
	})
	return nil
}

func (r *MemoryRepository) Payouts(_ context.Context, recipient shared.Principal) (shared.Amount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.payouts[recipient], nil
}
