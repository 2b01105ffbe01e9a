// Package pool is the shared fund ledger. Totals live in one Account
// aggregate that changes only through applyDeposit and applyPayout.
package pool

import (
	"context"
	"errors"

	"github.com/healthpool/riskpool/internal/shared"
)

var (
	// ErrZeroValue rejects deposits and payouts of nothing.
	ErrZeroValue = shared.NewReason(shared.ErrInvalidInput, "ZeroValue", "pool: amount must be greater than zero")
	// ErrInsufficientFunds indicates a payout larger than the current balance.
	ErrInsufficientFunds = shared.NewReason(shared.ErrInsufficientFunds, "InsufficientFunds", "pool: payout exceeds current balance")
	// ErrNotClaimManager indicates the caller lacks CLAIM_MANAGER.
	ErrNotClaimManager = shared.NewReason(shared.ErrUnauthorized, "NotClaimManager", "pool: caller is not a claim manager")
	// ErrZeroRecipient rejects payouts to the zero address.
	ErrZeroRecipient = shared.NewReason(shared.ErrInvalidInput, "ZeroRecipient", "pool: recipient required")
	// ErrInvalidFeePercent rejects admin fee percentages above 100.
	ErrInvalidFeePercent = shared.NewReason(shared.ErrInvalidInput, "InvalidFeePercent", "pool: admin fee percent must be between 0 and 100")
	// ErrConservationViolated reports totalDeposits != fees + paid + balance.
	ErrConservationViolated = errors.New("pool: conservation identity violated")
)

// Account is the pool aggregate.
type Account struct {
	TotalDeposits   shared.Amount `json:"total_deposits"`
	TotalAdminFees  shared.Amount `json:"total_admin_fees"`
	TotalClaimsPaid shared.Amount `json:"total_claims_paid"`
	CurrentBalance  shared.Amount `json:"current_balance"`
}

// applyDeposit credits amount, skimming pct percent as admin fee.
func (a Account) applyDeposit(amount shared.Amount, pct uint8) (Account, shared.Amount, error) {
	if amount.IsZero() {
		return a, 0, ErrZeroValue
	}
	fee, err := amount.Percent(pct)
	if err != nil {
		return a, 0, err
	}
	net, err := amount.Sub(fee)
	if err != nil {
		return a, 0, err
	}
	next := a
	if next.TotalDeposits, err = a.TotalDeposits.Add(amount); err != nil {
		return a, 0, err
	}
	if next.TotalAdminFees, err = a.TotalAdminFees.Add(fee); err != nil {
		return a, 0, err
	}
	if next.CurrentBalance, err = a.CurrentBalance.Add(net); err != nil {
		return a, 0, err
	}
	return next, fee, nil
}

// applyPayout debits amount from the balance into claims paid.
func (a Account) applyPayout(amount shared.Amount) (Account, error) {
	if amount.IsZero() {
		return a, ErrZeroValue
	}
	if amount > a.CurrentBalance {
		return a, ErrInsufficientFunds
	}
	next := a
	var err error
	if next.TotalClaimsPaid, err = a.TotalClaimsPaid.Add(amount); err != nil {
		return a, err
	}
	next.CurrentBalance = a.CurrentBalance - amount
	return next, nil
}

// Conserved reports whether every deposited unit is accounted for.
func (a Account) Conserved() bool {
	sum, err := a.TotalAdminFees.Add(a.TotalClaimsPaid)
	if err != nil {
		return false
	}
	sum, err = sum.Add(a.CurrentBalance)
	return err == nil && sum == a.TotalDeposits
}

// Config tunes deposit handling.
type Config struct {
	// AdminFeePercent is skimmed from every deposit. Zero disables the split.
	AdminFeePercent uint8
}

// Transferer moves payout value to a recipient outside the ledger.
type Transferer interface {
	Transfer(ctx context.Context, recipient shared.Principal, amount shared.Amount) error
}

// Repository persists the account aggregate and book-entry payouts.
type Repository interface {
	LoadAccount(ctx context.Context) (Account, error)
	SaveAccount(ctx context.Context, a Account) error
	CreditPayout(ctx context.Context, recipient shared.Principal, amount shared.Amount) error
	Payouts(ctx context.Context, recipient shared.Principal) (shared.Amount, error)
}
