package pool

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

var (
	manager   = shared.MustPrincipal("0xB000000000000000000000000000000000000001")
	depositor = shared.MustPrincipal("0xB000000000000000000000000000000000000002")
	patient   = shared.MustPrincipal("0xB000000000000000000000000000000000000003")
)

type stubChecker map[shared.Principal]bool

func (s stubChecker) HasRole(_ context.Context, role shared.Role, p shared.Principal) (bool, error) {
	return role == shared.RoleClaimManager && s[p], nil
}

type failingTransferer struct{ err error }

func (f failingTransferer) Transfer(context.Context, shared.Principal, shared.Amount) error {
	return f.err
}

type fixture struct {
	repo    *MemoryRepository
	sink    *events.MemorySink
	runner  *txn.Memory
	service *Service
}

func newFixture(t *testing.T, pct uint8, transferer Transferer) fixture {
	t.Helper()
	f := fixture{repo: NewMemoryRepository(), sink: events.NewMemorySink(), runner: txn.NewMemory()}
	svc, err := NewService(f.repo, f.runner, stubChecker{manager: true}, transferer, events.NewBus(nil, f.sink), Config{AdminFeePercent: pct})
	require.NoError(t, err)
	f.service = svc
	return f
}

func (f fixture) account(t *testing.T) Account {
	t.Helper()
	acct, err := f.service.Account(context.Background())
	require.NoError(t, err)
	return acct
}

func TestDepositWithAdminFee(t *testing.T) {
	f := newFixture(t, 5, nil)
	require.NoError(t, f.service.Deposit(context.Background(), depositor, 1000))

	acct := f.account(t)
	assert.Equal(t, shared.Amount(1000), acct.TotalDeposits)
	assert.Equal(t, shared.Amount(50), acct.TotalAdminFees)
	assert.Equal(t, shared.Amount(950), acct.CurrentBalance)
	assert.True(t, acct.Conserved())

	list, err := f.sink.List(context.Background(), events.Filter{Type: events.PoolDeposit})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "50", list[0].Data["admin_fee"])
}

func TestDepositSimpleModeAndTruncation(t *testing.T) {
	f := newFixture(t, 0, nil)
	require.NoError(t, f.service.Deposit(context.Background(), depositor, 999))
	assert.Equal(t, Account{TotalDeposits: 999, CurrentBalance: 999}, f.account(t))

	g := newFixture(t, 5, nil)
	require.NoError(t, g.service.Deposit(context.Background(), depositor, 19))
	assert.Equal(t, Account{TotalDeposits: 19, CurrentBalance: 19}, g.account(t))
}

func TestDepositRejectsZeroAndOverflow(t *testing.T) {
	f := newFixture(t, 0, nil)
	ctx := context.Background()
	err := f.service.Deposit(ctx, depositor, 0)
	assert.ErrorIs(t, err, ErrZeroValue)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	require.NoError(t, f.service.Deposit(ctx, depositor, math.MaxUint64))
	assert.ErrorIs(t, f.service.Deposit(ctx, depositor, 1), shared.ErrOverflow)
	assert.Equal(t, shared.Amount(math.MaxUint64), f.account(t).CurrentBalance)
}

func TestNewServiceRejectsFeeAbove100(t *testing.T) {
	_, err := NewService(NewMemoryRepository(), txn.NewMemory(), stubChecker{}, nil, nil, Config{AdminFeePercent: 101})
	assert.ErrorIs(t, err, ErrInvalidFeePercent)
}

func TestPayClaim(t *testing.T) {
	f := newFixture(t, 0, nil)
	ctx := context.Background()
	require.NoError(t, f.service.Deposit(ctx, depositor, 500))

	require.NoError(t, f.service.PayClaim(ctx, manager, patient, 200))
	acct := f.account(t)
	assert.Equal(t, shared.Amount(300), acct.CurrentBalance)
	assert.Equal(t, shared.Amount(200), acct.TotalClaimsPaid)
	assert.True(t, acct.Conserved())

	credited, err := f.service.Payouts(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, shared.Amount(200), credited)
	assert.Contains(t, f.sink.Types(), events.PoolClaimPaid)
}

func TestPayClaimAuthorizationAndFunds(t *testing.T) {
	f := newFixture(t, 0, nil)
	ctx := context.Background()
	require.NoError(t, f.service.Deposit(ctx, depositor, 100))
	before := f.account(t)

	err := f.service.PayClaim(ctx, depositor, patient, 10)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.ErrorIs(t, f.service.RecordClaim(ctx, depositor, 10), ErrNotClaimManager)

	err = f.service.PayClaim(ctx, manager, patient, 101)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	assert.ErrorIs(t, f.service.PayClaim(ctx, manager, patient, 0), ErrZeroValue)
	assert.ErrorIs(t, f.service.PayClaim(ctx, manager, shared.ZeroPrincipal, 5), ErrZeroRecipient)

	assert.Equal(t, before, f.account(t))
	credited, err := f.service.Payouts(ctx, patient)
	require.NoError(t, err)
	assert.Zero(t, credited)
}

func TestPayClaimTransferFailureRollsBack(t *testing.T) {
	rail := errors.New("rail offline")
	f := newFixture(t, 0, failingTransferer{err: rail})
	ctx := context.Background()
	require.NoError(t, f.service.Deposit(ctx, depositor, 100))
	eventsBefore := len(f.sink.Types())

	err := f.service.PayClaim(ctx, manager, patient, 40)
	assert.ErrorIs(t, err, rail)
	assert.Equal(t, Account{TotalDeposits: 100, CurrentBalance: 100}, f.account(t))
	assert.Len(t, f.sink.Types(), eventsBefore)
}

func TestRecordClaimExactBalance(t *testing.T) {
	f := newFixture(t, 10, nil)
	ctx := context.Background()
	require.NoError(t, f.service.Deposit(ctx, depositor, 1000))
	require.NoError(t, f.service.RecordClaim(ctx, manager, 900))
	acct := f.account(t)
	assert.Zero(t, acct.CurrentBalance)
	assert.Equal(t, shared.Amount(100), acct.TotalAdminFees)
	assert.ErrorIs(t, f.service.RecordClaim(ctx, manager, 1), ErrInsufficientFunds)
	assert.Contains(t, f.sink.Types(), events.PoolClaimRecorded)
}

func TestConservationHoldsAcrossSequence(t *testing.T) {
	f := newFixture(t, 7, nil)
	ctx := context.Background()
	ops := []struct {
		deposit bool
		amount  shared.Amount
	}{
		{true, 1000}, {false, 300}, {true, 33}, {false, 5000}, {true, 1}, {false, 0}, {true, 999}, {false, 600},
	}
	for _, op := range ops {
		if op.deposit {
			_ = f.service.Deposit(ctx, depositor, op.amount)
		} else {
			_ = f.service.PayClaim(ctx, manager, patient, op.amount)
		}
		_, err := f.service.VerifyConservation(ctx)
		require.NoError(t, err)
	}
}

func TestVerifyConservationDetectsCorruption(t *testing.T) {
	f := newFixture(t, 0, nil)
	ctx := context.Background()
	require.NoError(t, f.repo.SaveAccount(ctx, Account{TotalDeposits: 10, CurrentBalance: 9}))
	_, err := f.service.VerifyConservation(ctx)
	assert.ErrorIs(t, err, ErrConservationViolated)
}

func TestNestedPayoutRevertsWithOuterUnit(t *testing.T) {
	f := newFixture(t, 0, nil)
	ctx := context.Background()
	require.NoError(t, f.service.Deposit(ctx, depositor, 100))

	outer := errors.New("claim update failed")
	err := f.runner.Run(ctx, func(ctx context.Context) error {
		if err := f.service.PayClaim(ctx, manager, patient, 60); err != nil {
			return err
		}
		return outer
	})
	assert.ErrorIs(t, err, outer)
	assert.Equal(t, shared.Amount(100), f.account(t).CurrentBalance)
	credited, err := f.service.Payouts(ctx, patient)
	require.NoError(t, err)
	assert.Zero(t, credited)
}

func TestOnChangeRunsAfterCommit(t *testing.T) {
	f := newFixture(t, 0, nil)
	ctx := context.Background()
	var calls int
	f.service.OnChange(func(context.Context) { calls++ })

	require.NoError(t, f.service.Deposit(ctx, depositor, 10))
	assert.Equal(t, 1, calls)
	_ = f.service.PayClaim(ctx, manager, patient, 50)
	assert.Equal(t, 1, calls)
}
