package claims

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/healthpool/riskpool/internal/shared"
)

// MembershipQuery is the read-only view of the membership registry.
type MembershipQuery interface {
	IsActiveParticipant(ctx context.Context, principal shared.Principal) (bool, error)
	IsApprovedProvider(ctx context.Context, principal shared.Principal) (bool, error)
}

// PoolPayer pays approved claims out of the pool.
type PoolPayer interface {
	PayClaim(ctx context.Context, caller, recipient shared.Principal, amount shared.Amount) error
}

// AccessChecker answers role membership questions.
type AccessChecker interface {
	HasRole(ctx context.Context, role shared.Role, principal shared.Principal) (bool, error)
}

// DisbursementScheduler queues payout of an approved claim.
type DisbursementScheduler interface {
	ScheduleDisbursement(ctx context.Context, claimID int64) error
}
