package claims

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

// Service runs the claim lifecycle Pending -> Approved | Rejected.
type Service struct {
	repo       Repository
	runner     txn.Runner
	membership MembershipQuery
	pool       PoolPayer
	access     AccessChecker
	scheduler  DisbursementScheduler
	events     events.Emitter
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// Deps groups the collaborators of the claims ledger.
type Deps struct {
	Repo       Repository
	Runner     txn.Runner
	Membership MembershipQuery
	Pool       PoolPayer
	Access     AccessChecker
	Scheduler  DisbursementScheduler
	Events     events.Emitter
	Logger     *slog.Logger
}

// NewService constructs the claims ledger.
func NewService(deps Deps, cfg Config) (*Service, error) {
	switch cfg.PayoutMode {
	case "":
		cfg.PayoutMode = PayoutInline
	case PayoutInline, PayoutDeferred:
	default:
		return nil, ErrInvalidPayoutMode
	}
	if cfg.Principal.IsZero() {
		return nil, errors.New("claims: ledger principal required")
	}
	if deps.Events == nil {
		deps.Events = events.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		repo:       deps.Repo,
		runner:     deps.Runner,
		membership: deps.Membership,
		pool:       deps.Pool,
		access:     deps.Access,
		scheduler:  deps.Scheduler,
		events:     deps.Events,
		cfg:        cfg,
		logger:     deps.Logger,
		now:        time.Now,
	}, nil
}

// WithNow overrides the clock used to stamp claims.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// SetScheduler installs the disbursement scheduler used in deferred mode.
func (s *Service) SetScheduler(scheduler DisbursementScheduler) {
	s.scheduler = scheduler
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// SubmitClaim files a pending claim for caller, who must be an active participant.
func (s *Service) SubmitClaim(ctx context.Context, caller shared.Principal, amount shared.Amount, treatment TreatmentType, patientCode string) (Claim, error) {
	var out Claim
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		active, err := s.membership.IsActiveParticipant(ctx, caller)
		if err != nil {
			return err
		}
		if !active {
			return ErrNotActiveParticipant
		}
		if amount.IsZero() {
			return ErrInvalidAmount
		}
		if !treatment.Valid() {
			return ErrInvalidTreatment
		}
		c := Claim{
			Participant:   caller,
			Amount:        amount,
			Status:        StatusPending,
			TreatmentType: treatment,
			PatientCode:   patientCode,
			SubmittedAt:   s.now().UTC(),
			Payout:        PayoutNone,
		}
		id, err := s.repo.Insert(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id
		s.events.Emit(ctx, events.Event{
			Type:    events.ClaimSubmitted,
			Actor:   caller,
			ClaimID: id,
			Amount:  amount,
			Data:    map[string]string{"treatment_type": string(treatment)},
			At:      c.SubmittedAt,
		})
		out = c
		return nil
	})
	return out, err
}

// ApproveClaim approves a pending claim. In inline mode the payout happens
// in the same unit and any payout failure leaves the claim pending.
func (s *Service) ApproveClaim(ctx context.Context, caller shared.Principal, id int64) (Claim, error) {
	var out Claim
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		c, err := s.pending(ctx, caller, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		c.Status = StatusApproved
		c.DecidedAt = &now
		c.DecidedBy = caller
		switch s.cfg.PayoutMode {
		case PayoutDeferred:
			c.Payout = PayoutScheduled
			txn.AfterCommit(ctx, func(ctx context.Context) {
				s.schedule(ctx, id)
			})
		default:
			if err := s.pool.PayClaim(ctx, s.cfg.Principal, c.Participant, c.Amount); err != nil {
				return err
			}
			c.Payout = PayoutPaid
			c.PaidAt = &now
		}
		if err := s.repo.Save(ctx, c); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{
			Type:    events.ClaimApproved,
			Actor:   caller,
			Subject: c.Participant,
			ClaimID: id,
			Amount:  c.Amount,
			Data:    map[string]string{"payout": string(c.Payout)},
			At:      now,
		})
		out = c
		return nil
	})
	return out, err
}

// RejectClaim rejects a pending claim. No value moves.
func (s *Service) RejectClaim(ctx context.Context, caller shared.Principal, id int64) (Claim, error) {
	var out Claim
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		c, err := s.pending(ctx, caller, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		c.Status = StatusRejected
		c.DecidedAt = &now
		c.DecidedBy = caller
		if err := s.repo.Save(ctx, c); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{
			Type:    events.ClaimRejected,
			Actor:   caller,
			Subject: c.Participant,
			ClaimID: id,
			At:      now,
		})
		out = c
		return nil
	})
	return out, err
}

// Disburse pays an approved claim that has not been paid yet. It succeeds at
// most once per claim; a pool shortfall leaves the claim scheduled.
func (s *Service) Disburse(ctx context.Context, id int64) (Claim, error) {
	var out Claim
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		c, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != StatusApproved {
			return ErrNotApproved
		}
		if c.Payout == PayoutPaid {
			return ErrAlreadyDisbursed
		}
		if err := s.pool.PayClaim(ctx, s.cfg.Principal, c.Participant, c.Amount); err != nil {
			return err
		}
		now := s.now().UTC()
		c.Payout = PayoutPaid
		c.PaidAt = &now
		if err := s.repo.Save(ctx, c); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{
			Type:    events.ClaimDisbursed,
			Actor:   s.cfg.Principal,
			Subject: c.Participant,
			ClaimID: id,
			Amount:  c.Amount,
			At:      now,
		})
		out = c
		return nil
	})
	return out, err
}

// GetClaim returns claim id.
func (s *Service) GetClaim(ctx context.Context, id int64) (Claim, error) {
	return s.get(ctx, id)
}

// ListClaims returns claims matching f ordered by id.
func (s *Service) ListClaims(ctx context.Context, f Filter) ([]Claim, error) {
	return s.repo.List(ctx, f)
}

// PendingDisbursements lists approved claims still awaiting payment.
func (s *Service) PendingDisbursements(ctx context.Context) ([]Claim, error) {
	approved, err := s.repo.List(ctx, Filter{Status: StatusApproved})
	if err != nil {
		return nil, err
	}
	out := approved[:0]
	for _, c := range approved {
		if c.Payout == PayoutScheduled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) get(ctx context.Context, id int64) (Claim, error) {
	c, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Claim{}, err
	}
	if !ok {
		return Claim{}, ErrClaimNotFound
	}
	return c, nil
}

// pending authorizes caller as an adjudicator and loads a pending claim.
func (s *Service) pending(ctx context.Context, caller shared.Principal, id int64) (Claim, error) {
	if err := s.authorizeProvider(ctx, caller); err != nil {
		return Claim{}, err
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return Claim{}, err
	}
	if c.Status != StatusPending {
		return Claim{}, ErrNotPending
	}
	return c, nil
}

func (s *Service) authorizeProvider(ctx context.Context, caller shared.Principal) error {
	approved, err := s.membership.IsApprovedProvider(ctx, caller)
	if err != nil {
		return err
	}
	if !approved {
		return ErrNotApprovedProvider
	}
	if !s.cfg.RequireHospitalRole {
		return nil
	}
	ok, err := s.access.HasRole(ctx, shared.RoleHospital, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissingHospitalRole
	}
	return nil
}

func (s *Service) schedule(ctx context.Context, id int64) {
	if s.scheduler == nil {
		s.logger.Warn("claims disbursement scheduler missing", slog.Int64("claim_id", id))
		return
	}
	if err := s.scheduler.ScheduleDisbursement(ctx, id); err != nil {
		s.logger.Error("claims schedule disbursement",
			slog.Int64("claim_id", id),
			slog.Any("error", err))
	}
}
