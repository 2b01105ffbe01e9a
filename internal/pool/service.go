package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/healthpool/riskpool/internal/access"
	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

// Service coordinates pool ledger mutations.
type Service struct {
	repo       Repository
	runner     txn.Runner
	access     access.Checker
	transferer Transferer
	events     events.Emitter
	cfg        Config
	now        func() time.Time
	onChange   []func(context.Context)
}

// NewService constructs the pool ledger. A nil transferer defaults to book entries.
func NewService(repo Repository, runner txn.Runner, checker access.Checker, transferer Transferer, emitter events.Emitter, cfg Config) (*Service, error) {
	if cfg.AdminFeePercent > 100 {
		return nil, ErrInvalidFeePercent
	}
	if transferer == nil {
		transferer = NewBookTransferer(repo)
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Service{
		repo:       repo,
		runner:     runner,
		access:     checker,
		transferer: transferer,
		events:     emitter,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// WithNow overrides the clock used to stamp events.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// OnChange registers fn to run after every committed mutation.
func (s *Service) OnChange(fn func(context.Context)) {
	if fn != nil {
		s.onChange = append(s.onChange, fn)
	}
}

// Config returns the deposit configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Deposit credits amount from depositor. Anyone may deposit.
func (s *Service) Deposit(ctx context.Context, depositor shared.Principal, amount shared.Amount) error {
	return s.runner.Run(ctx, func(ctx context.Context) error {
		acct, err := s.repo.LoadAccount(ctx)
		if err != nil {
			return err
		}
		next, fee, err := acct.applyDeposit(amount, s.cfg.AdminFeePercent)
		if err != nil {
			return err
		}
		if err := s.repo.SaveAccount(ctx, next); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{
			Type:   events.PoolDeposit,
			Actor:  depositor,
			Amount: amount,
			Data:   map[string]string{"admin_fee": fee.String()},
			At:     s.now().UTC(),
		})
		s.changed(ctx)
		return nil
	})
}

// RecordClaim books a payout that is settled outside the ledger.
func (s *Service) RecordClaim(ctx context.Context, caller shared.Principal, amount shared.Amount) error {
	return s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.payout(ctx, caller, amount); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{
			Type:   events.PoolClaimRecorded,
			Actor:  caller,
			Amount: amount,
			At:     s.now().UTC(),
		})
		return nil
	})
}

// PayClaim debits amount and transfers it to recipient. A failed transfer
// reverts the debit.
func (s *Service) PayClaim(ctx context.Context, caller, recipient shared.Principal, amount shared.Amount) error {
	if recipient.IsZero() {
		return ErrZeroRecipient
	}
	return s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.payout(ctx, caller, amount); err != nil {
			return err
		}
		if err := s.transferer.Transfer(ctx, recipient, amount); err != nil {
			return fmt.Errorf("pool: transfer to %s: %w", recipient, err)
		}
		s.events.Emit(ctx, events.Event{
			Type:    events.PoolClaimPaid,
			Actor:   caller,
			Subject: recipient,
			Amount:  amount,
			At:      s.now().UTC(),
		})
		return nil
	})
}

// Account returns the current totals.
func (s *Service) Account(ctx context.Context) (Account, error) {
	var out Account
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.repo.LoadAccount(ctx)
		return err
	})
	return out, err
}

// VerifyConservation checks the accounting identity of the stored totals.
func (s *Service) VerifyConservation(ctx context.Context) (Account, error) {
	acct, err := s.Account(ctx)
	if err != nil {
		return Account{}, err
	}
	if !acct.Conserved() {
		return acct, fmt.Errorf("%w: deposits=%s fees=%s paid=%s balance=%s", ErrConservationViolated,
			acct.TotalDeposits, acct.TotalAdminFees, acct.TotalClaimsPaid, acct.CurrentBalance)
	}
	return acct, nil
}

// Payouts returns the book-entry total credited to recipient.
func (s *Service) Payouts(ctx context.Context, recipient shared.Principal) (shared.Amount, error) {
	return s.repo.Payouts(ctx, recipient)
}

func (s *Service) payout(ctx context.Context, caller shared.Principal, amount shared.Amount) error {
	ok, err := s.access.HasRole(ctx, shared.RoleClaimManager, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotClaimManager
	}
	acct, err := s.repo.LoadAccount(ctx)
	if err != nil {
		return err
	}
	next, err := acct.applyPayout(amount)
	if err != nil {
		return err
	}
	if err := s.repo.SaveAccount(ctx, next); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *Service) changed(ctx context.Context) {
	for _, fn := range s.onChange {
		txn.AfterCommit(ctx, fn)
	}
}
