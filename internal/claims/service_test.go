package claims

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/healthpool/riskpool/internal/claims/mocks"
	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

var (
	ledger   = shared.MustPrincipal("0xD000000000000000000000000000000000000001")
	patient  = shared.MustPrincipal("0xD000000000000000000000000000000000000002")
	hospital = shared.MustPrincipal("0xD000000000000000000000000000000000000003")
	stranger = shared.MustPrincipal("0xD000000000000000000000000000000000000004")
)

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	ctx        context.Context
	membership *mocks.MockMembershipQuery
	pool       *mocks.MockPoolPayer
	access     *mocks.MockAccessChecker
	scheduler  *mocks.MockDisbursementScheduler
	repo       *MemoryRepository
	sink       *events.MemorySink
	now        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.membership = mocks.NewMockMembershipQuery(s.ctrl)
	s.pool = mocks.NewMockPoolPayer(s.ctrl)
	s.access = mocks.NewMockAccessChecker(s.ctrl)
	s.scheduler = mocks.NewMockDisbursementScheduler(s.ctrl)
	s.repo = NewMemoryRepository()
	s.sink = events.NewMemorySink()
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) newService(mode PayoutMode, requireHospital bool) *Service {
	svc, err := NewService(Deps{
		Repo:       s.repo,
		Runner:     txn.NewMemory(),
		Membership: s.membership,
		Pool:       s.pool,
		Access:     s.access,
		Scheduler:  s.scheduler,
		Events:     events.NewBus(nil, s.sink),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, Config{Principal: ledger, PayoutMode: mode, RequireHospitalRole: requireHospital})
	s.Require().NoError(err)
	return svc.WithNow(func() time.Time { return s.now })
}

func (s *ServiceSuite) submit(svc *Service, amount shared.Amount) Claim {
	s.membership.EXPECT().IsActiveParticipant(gomock.Any(), patient).Return(true, nil)
	c, err := svc.SubmitClaim(s.ctx, patient, amount, TreatmentOutpatient, "PX-1")
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) expectAdjudicator(p shared.Principal) {
	s.membership.EXPECT().IsApprovedProvider(gomock.Any(), p).Return(true, nil)
	s.access.EXPECT().HasRole(gomock.Any(), shared.RoleHospital, p).Return(true, nil)
}

func (s *ServiceSuite) claim(id int64) Claim {
	c, err := s.repo.List(s.ctx, Filter{})
	s.Require().NoError(err)
	for _, rec := range c {
		if rec.ID == id {
			return rec
		}
	}
	s.FailNow("claim missing")
	return Claim{}
}

func (s *ServiceSuite) TestSubmitClaim() {
	svc := s.newService(PayoutInline, true)
	c := s.submit(svc, 200)
	s.Equal(int64(1), c.ID)
	s.Equal(StatusPending, c.Status)
	s.Equal(PayoutNone, c.Payout)
	s.Equal(s.now, c.SubmittedAt)

	second := s.submit(svc, 50)
	s.Equal(int64(2), second.ID)

	list, err := s.sink.List(s.ctx, events.Filter{Type: events.ClaimSubmitted, ClaimID: 1})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(shared.Amount(200), list[0].Amount)
	s.Equal("OUTPATIENT", list[0].Data["treatment_type"])
}

func (s *ServiceSuite) TestSubmitClaimRejections() {
	svc := s.newService(PayoutInline, true)

	s.membership.EXPECT().IsActiveParticipant(gomock.Any(), stranger).Return(false, nil)
	_, err := svc.SubmitClaim(s.ctx, stranger, 200, TreatmentEmergency, "PX")
	s.ErrorIs(err, ErrNotActiveParticipant)
	s.ErrorIs(err, shared.ErrUnauthorized)

	s.membership.EXPECT().IsActiveParticipant(gomock.Any(), patient).Return(true, nil).Times(2)
	_, err = svc.SubmitClaim(s.ctx, patient, 0, TreatmentEmergency, "PX")
	s.ErrorIs(err, ErrInvalidAmount)
	_, err = svc.SubmitClaim(s.ctx, patient, 10, TreatmentType("DENTAL"), "PX")
	s.ErrorIs(err, shared.ErrInvalidInput)

	all, err := svc.ListClaims(s.ctx, Filter{})
	s.Require().NoError(err)
	s.Empty(all)
	s.Empty(s.sink.Types())

	// The failed submissions do not consume ids.
	s.Equal(int64(1), s.submit(svc, 5).ID)
}

func (s *ServiceSuite) TestApproveInlinePays() {
	svc := s.newService(PayoutInline, true)
	c := s.submit(svc, 200)

	s.expectAdjudicator(hospital)
	s.pool.EXPECT().PayClaim(gomock.Any(), ledger, patient, shared.Amount(200)).Return(nil)
	approved, err := svc.ApproveClaim(s.ctx, hospital, c.ID)
	s.Require().NoError(err)
	s.Equal(StatusApproved, approved.Status)
	s.Equal(PayoutPaid, approved.Payout)
	s.Equal(hospital, approved.DecidedBy)
	s.Require().NotNil(approved.PaidAt)
	s.Equal(approved, s.claim(c.ID))
	s.Contains(s.sink.Types(), events.ClaimApproved)
}

func (s *ServiceSuite) TestApproveInlinePayoutFailureLeavesPending() {
	svc := s.newService(PayoutInline, true)
	c := s.submit(svc, 200)
	before := len(s.sink.Types())

	s.expectAdjudicator(hospital)
	shortfall := shared.NewReason(shared.ErrInsufficientFunds, "InsufficientFunds", "pool: payout exceeds current balance")
	s.pool.EXPECT().PayClaim(gomock.Any(), ledger, patient, shared.Amount(200)).Return(shortfall)
	_, err := svc.ApproveClaim(s.ctx, hospital, c.ID)
	s.ErrorIs(err, shared.ErrInsufficientFunds)

	s.Equal(StatusPending, s.claim(c.ID).Status)
	s.Len(s.sink.Types(), before)
}

func (s *ServiceSuite) TestUnauthorizedAdjudication() {
	svc := s.newService(PayoutInline, true)
	c := s.submit(svc, 200)

	s.membership.EXPECT().IsApprovedProvider(gomock.Any(), stranger).Return(false, nil).Times(2)
	_, err := svc.ApproveClaim(s.ctx, stranger, c.ID)
	s.ErrorIs(err, ErrNotApprovedProvider)
	_, err = svc.RejectClaim(s.ctx, stranger, c.ID)
	s.ErrorIs(err, shared.ErrUnauthorized)

	s.membership.EXPECT().IsApprovedProvider(gomock.Any(), hospital).Return(true, nil)
	s.access.EXPECT().HasRole(gomock.Any(), shared.RoleHospital, hospital).Return(false, nil)
	_, err = svc.ApproveClaim(s.ctx, hospital, c.ID)
	s.ErrorIs(err, ErrMissingHospitalRole)

	s.Equal(c, s.claim(c.ID))
}

func (s *ServiceSuite) TestHospitalRoleOptional() {
	svc := s.newService(PayoutInline, false)
	c := s.submit(svc, 20)
	s.membership.EXPECT().IsApprovedProvider(gomock.Any(), hospital).Return(true, nil)
	rejected, err := svc.RejectClaim(s.ctx, hospital, c.ID)
	s.Require().NoError(err)
	s.Equal(StatusRejected, rejected.Status)
	s.Equal(PayoutNone, rejected.Payout)
}

func (s *ServiceSuite) TestDecisionsAreTerminal() {
	svc := s.newService(PayoutInline, true)
	c := s.submit(svc, 200)
	s.expectAdjudicator(hospital)
	s.pool.EXPECT().PayClaim(gomock.Any(), ledger, patient, shared.Amount(200)).Return(nil)
	_, err := svc.ApproveClaim(s.ctx, hospital, c.ID)
	s.Require().NoError(err)

	s.expectAdjudicator(hospital)
	_, err = svc.ApproveClaim(s.ctx, hospital, c.ID)
	s.ErrorIs(err, ErrNotPending)
	s.ErrorIs(err, shared.ErrInvalidState)

	s.expectAdjudicator(hospital)
	_, err = svc.RejectClaim(s.ctx, hospital, c.ID)
	s.ErrorIs(err, ErrNotPending)
	s.Equal(StatusApproved, s.claim(c.ID).Status)

	s.expectAdjudicator(hospital)
	_, err = svc.ApproveClaim(s.ctx, hospital, 99)
	s.ErrorIs(err, shared.ErrNotFound)
	_, err = svc.GetClaim(s.ctx, 99)
	s.ErrorIs(err, ErrClaimNotFound)
}

func (s *ServiceSuite) TestDeferredDisbursement() {
	svc := s.newService(PayoutDeferred, true)
	c := s.submit(svc, 300)

	s.expectAdjudicator(hospital)
	s.scheduler.EXPECT().ScheduleDisbursement(gomock.Any(), c.ID).Return(nil)
	approved, err := svc.ApproveClaim(s.ctx, hospital, c.ID)
	s.Require().NoError(err)
	s.Equal(StatusApproved, approved.Status)
	s.Equal(PayoutScheduled, approved.Payout)
	s.Nil(approved.PaidAt)

	pending, err := svc.PendingDisbursements(s.ctx)
	s.Require().NoError(err)
	s.Len(pending, 1)

	rail := errors.New("pool offline")
	s.pool.EXPECT().PayClaim(gomock.Any(), ledger, patient, shared.Amount(300)).Return(rail)
	_, err = svc.Disburse(s.ctx, c.ID)
	s.ErrorIs(err, rail)
	s.Equal(PayoutScheduled, s.claim(c.ID).Payout)

	s.pool.EXPECT().PayClaim(gomock.Any(), ledger, patient, shared.Amount(300)).Return(nil)
	paid, err := svc.Disburse(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(PayoutPaid, paid.Payout)
	s.Contains(s.sink.Types(), events.ClaimDisbursed)

	_, err = svc.Disburse(s.ctx, c.ID)
	s.ErrorIs(err, ErrAlreadyDisbursed)
	s.ErrorIs(err, shared.ErrInvalidState)

	pending, err = svc.PendingDisbursements(s.ctx)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *ServiceSuite) TestDisburseRequiresApproval() {
	svc := s.newService(PayoutDeferred, true)
	c := s.submit(svc, 10)
	_, err := svc.Disburse(s.ctx, c.ID)
	s.ErrorIs(err, ErrNotApproved)
	_, err = svc.Disburse(s.ctx, 42)
	s.ErrorIs(err, shared.ErrNotFound)
}

func (s *ServiceSuite) TestSchedulerFailureKeepsApproval() {
	svc := s.newService(PayoutDeferred, true)
	c := s.submit(svc, 10)
	s.expectAdjudicator(hospital)
	s.scheduler.EXPECT().ScheduleDisbursement(gomock.Any(), c.ID).Return(errors.New("redis down"))
	_, err := svc.ApproveClaim(s.ctx, hospital, c.ID)
	s.Require().NoError(err)
	s.Equal(PayoutScheduled, s.claim(c.ID).Payout)
}

func (s *ServiceSuite) TestListClaimsFilters() {
	svc := s.newService(PayoutInline, false)
	first := s.submit(svc, 10)
	s.submit(svc, 20)
	s.membership.EXPECT().IsApprovedProvider(gomock.Any(), hospital).Return(true, nil)
	_, err := svc.RejectClaim(s.ctx, hospital, first.ID)
	s.Require().NoError(err)

	pending, err := svc.ListClaims(s.ctx, Filter{Status: StatusPending})
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(int64(2), pending[0].ID)

	mine, err := svc.ListClaims(s.ctx, Filter{Participant: patient, Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(int64(1), mine[0].ID)
}

func (s *ServiceSuite) TestNewServiceValidation() {
	_, err := NewService(Deps{}, Config{Principal: ledger, PayoutMode: "batch"})
	s.ErrorIs(err, ErrInvalidPayoutMode)
	_, err = NewService(Deps{}, Config{})
	s.Error(err)
	svc, err := NewService(Deps{}, Config{Principal: ledger})
	s.Require().NoError(err)
	s.Equal(PayoutInline, svc.Config().PayoutMode)
}
