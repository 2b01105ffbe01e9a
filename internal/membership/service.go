package membership

import (
	"context"
	"errors"
	"time"

	"github.com/healthpool/riskpool/internal/access"
	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

// Service coordinates membership operations.
type Service struct {
	repo    Repository
	runner  txn.Runner
	access  access.Checker
	feeSink FeeSink
	events  events.Emitter
	cfg     Config
	now     func() time.Time
}

// NewService constructs the membership registry. feeSink is required when
// routing fees to the pool.
func NewService(repo Repository, runner txn.Runner, checker access.Checker, feeSink FeeSink, emitter events.Emitter, cfg Config) (*Service, error) {
	if cfg.BillingPeriod <= 0 {
		cfg.BillingPeriod = DefaultBillingPeriod
	}
	switch cfg.Routing {
	case "":
		cfg.Routing = RouteTreasury
	case RouteTreasury:
	case RoutePool:
		if feeSink == nil {
			return nil, errors.New("membership: pool routing requires a fee sink")
		}
	default:
		return nil, ErrInvalidRouting
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Service{
		repo:    repo,
		runner:  runner,
		access:  checker,
		feeSink: feeSink,
		events:  emitter,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// WithNow overrides the clock used for activity checks.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// SetMonthlyFee configures the fee of tier. ADMIN only.
func (s *Service) SetMonthlyFee(ctx context.Context, caller shared.Principal, tier Tier, amount shared.Amount) error {
	if !tier.Valid() {
		return ErrInvalidTier
	}
	if amount.IsZero() {
		return ErrZeroFee
	}
	return s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.requireAdmin(ctx, caller); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := s.repo.SetFee(ctx, Fee{Tier: tier, Amount: amount, UpdatedAt: now}); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{
			Type:   events.FeeConfigured,
			Actor:  caller,
			Amount: amount,
			Data:   map[string]string{"tier": string(tier)},
			At:     now,
		})
		return nil
	})
}

// MonthlyFee returns the configured fee of tier.
func (s *Service) MonthlyFee(ctx context.Context, tier Tier) (shared.Amount, error) {
	if !tier.Valid() {
		return 0, ErrInvalidTier
	}
	fee, ok, err := s.repo.GetFee(ctx, tier)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInvalidTier
	}
	return fee.Amount, nil
}

// ListFees returns every configured fee in tier order.
func (s *Service) ListFees(ctx context.Context) ([]Fee, error) {
	return s.repo.ListFees(ctx)
}

// RegisterParticipant enrols caller at tier, paying the first period.
func (s *Service) RegisterParticipant(ctx context.Context, caller shared.Principal, tier Tier, payment shared.Amount) (Participant, error) {
	var out Participant
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.checkPayment(ctx, tier, payment); err != nil {
			return err
		}
		_, exists, err := s.repo.GetParticipant(ctx, caller)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyRegistered
		}
		now := s.now().UTC()
		out = Participant{Principal: caller, Tier: tier, RegisteredAt: now, LastPaidAt: now, TotalPaid: payment}
		if err := s.repo.SaveParticipant(ctx, out); err != nil {
			return err
		}
		if err := s.route(ctx, caller, payment); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{
			Type:  events.ParticipantRegistered,
			Actor: caller,
			Data:  map[string]string{"tier": string(tier)},
			At:    now,
		})
		s.emitPaid(ctx, out, payment)
		return nil
	})
	return out, err
}

// PayMonthlyFee renews coverage of caller from now.
func (s *Service) PayMonthlyFee(ctx context.Context, caller shared.Principal, payment shared.Amount) (Participant, error) {
	var out Participant
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		p, ok, err := s.repo.GetParticipant(ctx, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotRegistered
		}
		if err := s.checkPayment(ctx, p.Tier, payment); err != nil {
			return err
		}
		total, err := p.TotalPaid.Add(payment)
		if err != nil {
			return err
		}
		p.LastPaidAt = s.now().UTC()
		p.TotalPaid = total
		if err := s.repo.SaveParticipant(ctx, p); err != nil {
			return err
		}
		if err := s.route(ctx, caller, payment); err != nil {
			return err
		}
		s.emitPaid(ctx, p, payment)
		out = p
		return nil
	})
	return out, err
}

// IsActiveParticipant reports whether principal's coverage holds right now.
func (s *Service) IsActiveParticipant(ctx context.Context, principal shared.Principal) (bool, error) {
	p, ok, err := s.repo.GetParticipant(ctx, principal)
	if err != nil || !ok {
		return false, err
	}
	return p.ActiveAt(s.now(), s.cfg.BillingPeriod), nil
}

// GetParticipant returns the record of principal.
func (s *Service) GetParticipant(ctx context.Context, principal shared.Principal) (Participant, error) {
	p, ok, err := s.repo.GetParticipant(ctx, principal)
	if err != nil {
		return Participant{}, err
	}
	if !ok {
		return Participant{}, ErrNotRegistered
	}
	return p, nil
}

// ListParticipants returns every participant ordered by registration.
func (s *Service) ListParticipants(ctx context.Context) ([]Participant, error) {
	return s.repo.ListParticipants(ctx)
}

// ActivityCounts splits participants into active and lapsed at now.
func (s *Service) ActivityCounts(ctx context.Context) (active, lapsed int, err error) {
	all, err := s.repo.ListParticipants(ctx)
	if err != nil {
		return 0, 0, err
	}
	now := s.now()
	for _, p := range all {
		if p.ActiveAt(now, s.cfg.BillingPeriod) {
			active++
		} else {
			lapsed++
		}
	}
	return active, lapsed, nil
}

// RegisterHealthcareProvider files caller as a provider awaiting approval.
func (s *Service) RegisterHealthcareProvider(ctx context.Context, caller shared.Principal) (Provider, error) {
	var out Provider
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		_, exists, err := s.repo.GetProvider(ctx, caller)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyRegistered
		}
		out = Provider{Principal: caller, State: ProviderPending, RegisteredAt: s.now().UTC()}
		if err := s.repo.SaveProvider(ctx, out); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{Type: events.ProviderRegistered, Actor: caller, At: out.RegisteredAt})
		return nil
	})
	return out, err
}

// ApproveHealthcareProvider moves a pending provider to approved. ADMIN only.
func (s *Service) ApproveHealthcareProvider(ctx context.Context, caller, provider shared.Principal) (Provider, error) {
	return s.decide(ctx, caller, provider, ProviderApproved, events.ProviderApproved)
}

// RejectHealthcareProvider moves a pending provider to rejected. ADMIN only.
func (s *Service) RejectHealthcareProvider(ctx context.Context, caller, provider shared.Principal) (Provider, error) {
	return s.decide(ctx, caller, provider, ProviderRejected, events.ProviderRejected)
}

// IsApprovedProvider reports whether principal is an approved provider.
func (s *Service) IsApprovedProvider(ctx context.Context, principal shared.Principal) (bool, error) {
	p, ok, err := s.repo.GetProvider(ctx, principal)
	if err != nil || !ok {
		return false, err
	}
	return p.State == ProviderApproved, nil
}

// GetProvider returns the record of principal.
func (s *Service) GetProvider(ctx context.Context, principal shared.Principal) (Provider, error) {
	p, ok, err := s.repo.GetProvider(ctx, principal)
	if err != nil {
		return Provider{}, err
	}
	if !ok {
		return Provider{}, ErrProviderNotFound
	}
	return p, nil
}

// TreasuryTotal returns the fees collected under treasury routing.
func (s *Service) TreasuryTotal(ctx context.Context) (shared.Amount, error) {
	return s.repo.TreasuryTotal(ctx)
}

func (s *Service) decide(ctx context.Context, caller, principal shared.Principal, state ProviderState, evType events.Type) (Provider, error) {
	var out Provider
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.requireAdmin(ctx, caller); err != nil {
			return err
		}
		p, ok, err := s.repo.GetProvider(ctx, principal)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProviderNotFound
		}
		if p.State != ProviderPending {
			return ErrAlreadyDecided
		}
		now := s.now().UTC()
		p.State = state
		p.DecidedAt = &now
		p.DecidedBy = caller
		if err := s.repo.SaveProvider(ctx, p); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{Type: evType, Actor: caller, Subject: principal, At: now})
		out = p
		return nil
	})
	return out, err
}

func (s *Service) checkPayment(ctx context.Context, tier Tier, payment shared.Amount) error {
	if !tier.Valid() {
		return ErrInvalidTier
	}
	fee, ok, err := s.repo.GetFee(ctx, tier)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTier
	}
	if payment < fee.Amount {
		return ErrInsufficientPayment
	}
	return nil
}

func (s *Service) route(ctx context.Context, payer shared.Principal, payment shared.Amount) error {
	if s.cfg.Routing == RoutePool {
		return s.feeSink.Deposit(ctx, payer, payment)
	}
	return s.repo.CreditTreasury(ctx, payment)
}

func (s *Service) emitPaid(ctx context.Context, p Participant, payment shared.Amount) {
	s.events.Emit(ctx, events.Event{
		Type:   events.MembershipPaid,
		Actor:  p.Principal,
		Amount: payment,
		Data:   map[string]string{"tier": string(p.Tier)},
		At:     p.LastPaidAt,
	})
}

func (s *Service) requireAdmin(ctx context.Context, caller shared.Principal) error {
	ok, err := s.access.HasRole(ctx, shared.RoleAdmin, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAdmin
	}
	return nil
}
