// Package membership tracks tier fees, fee-paying participants and the
// approval state of healthcare providers.
package membership

import (
	"context"
	"time"

	"github.com/healthpool/riskpool/internal/shared"
)

// Tier is a membership level with its own monthly fee.
type Tier string

const (
	TierBasic    Tier = "BASIC"
	TierStandard Tier = "STANDARD"
	TierPremium  Tier = "PREMIUM"
)

// Tiers lists every tier in ascending order.
func Tiers() []Tier {
	return []Tier{TierBasic, TierStandard, TierPremium}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium:
		return true
	}
	return false
}

// ProviderState is the approval state of a provider.
type ProviderState string

const (
	ProviderPending  ProviderState = "PENDING"
	ProviderApproved ProviderState = "APPROVED"
	ProviderRejected ProviderState = "REJECTED"
)

// FeeRouting selects where fee payments are credited.
type FeeRouting string

const (
	// RouteTreasury credits fees to the separately tracked treasury fund.
	RouteTreasury FeeRouting = "treasury"
	// RoutePool forwards fees to the pool ledger as deposits.
	RoutePool FeeRouting = "pool"
)

// DefaultBillingPeriod is one month of coverage per payment.
const DefaultBillingPeriod = 30 * 24 * time.Hour

var (
	ErrInvalidTier         = shared.NewReason(shared.ErrInvalidInput, "InvalidTier", "membership: tier has no configured fee")
	ErrZeroFee             = shared.NewReason(shared.ErrInvalidInput, "ZeroValue", "membership: fee must be greater than zero")
	ErrInsufficientPayment = shared.NewReason(shared.ErrInsufficientPayment, "InsufficientPayment", "membership: payment below the tier fee")
	ErrAlreadyRegistered   = shared.NewReason(shared.ErrInvalidState, "AlreadyRegistered", "membership: already registered")
	ErrNotRegistered       = shared.NewReason(shared.ErrNotFound, "NotRegistered", "membership: participant not registered")
	ErrProviderNotFound    = shared.NewReason(shared.ErrNotFound, "ProviderNotFound", "membership: provider not registered")
	ErrAlreadyDecided      = shared.NewReason(shared.ErrInvalidState, "AlreadyDecided", "membership: provider already decided")
	ErrNotAdmin            = shared.NewReason(shared.ErrUnauthorized, "NotAdmin", "membership: caller is not an admin")
	ErrInvalidRouting      = shared.NewReason(shared.ErrInvalidInput, "InvalidRouting", "membership: unknown fee routing")
)

// Fee is the configured monthly fee of a tier.
type Fee struct {
	Tier      Tier          `json:"tier"`
	Amount    shared.Amount `json:"amount"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Participant is a fee-paying member.
type Participant struct {
	Principal    shared.Principal `json:"principal"`
	Tier         Tier             `json:"tier"`
	RegisteredAt time.Time        `json:"registered_at"`
	LastPaidAt   time.Time        `json:"last_paid_at"`
	TotalPaid    shared.Amount    `json:"total_paid"`
}

// ActiveAt reports whether coverage paid at LastPaidAt still holds at now.
// Coverage spans [LastPaidAt, LastPaidAt+period).
func (p Participant) ActiveAt(now time.Time, period time.Duration) bool {
	return now.Sub(p.LastPaidAt) < period
}

// Provider is a healthcare provider awaiting or holding approval.
type Provider struct {
	Principal    shared.Principal `json:"principal"`
	State        ProviderState    `json:"state"`
	RegisteredAt time.Time        `json:"registered_at"`
	DecidedAt    *time.Time       `json:"decided_at,omitempty"`
	DecidedBy    shared.Principal `json:"decided_by"`
}

// Config tunes the registry.
type Config struct {
	BillingPeriod time.Duration
	Routing       FeeRouting
}

// FeeSink receives fee payments when routing to the pool.
type FeeSink interface {
	Deposit(ctx context.Context, depositor shared.Principal, amount shared.Amount) error
}

// Repository persists fees, participants, providers and the treasury.
type Repository interface {
	GetFee(ctx context.Context, tier Tier) (Fee, bool, error)
	SetFee(ctx context.Context, fee Fee) error
	ListFees(ctx context.Context) ([]Fee, error)

	GetParticipant(ctx context.Context, p shared.Principal) (Participant, bool, error)
	SaveParticipant(ctx context.Context, p Participant) error
	ListParticipants(ctx context.Context) ([]Participant, error)

	GetProvider(ctx context.Context, p shared.Principal) (Provider, bool, error)
	SaveProvider(ctx context.Context, p Provider) error

	CreditTreasury(ctx context.Context, amount shared.Amount) error
	TreasuryTotal(ctx context.Context) (shared.Amount, error)
}
