package pool

import (
	"context"

	"github.com/healthpool/riskpool/internal/shared"
)

// BookTransferer credits payouts to per-recipient balances in the pool store.
type BookTransferer struct {
	repo Repository
}

// NewBookTransferer returns a transferer writing to repo.
func NewBookTransferer(repo Repository) *BookTransferer {
	return &BookTransferer{repo: repo}
}

func (t *BookTransferer) Transfer(ctx context.Context, recipient shared.Principal, amount shared.Amount) error {
	return t.repo.CreditPayout(ctx, recipient, amount)
}
