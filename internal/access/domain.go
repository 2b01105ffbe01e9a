// Package access is the role registry every other ledger consults before
// mutating state.
package access

import (
	"context"
	"time"

	"github.com/healthpool/riskpool/internal/shared"
)

var (
	// ErrUnknownRole rejects role names outside shared.KnownRoles.
	ErrUnknownRole = shared.NewReason(shared.ErrInvalidInput, "InvalidRole", "access: unknown role")
	// ErrZeroPrincipal rejects grants to the zero address.
	ErrZeroPrincipal = shared.NewReason(shared.ErrInvalidInput, "ZeroPrincipal", "access: principal required")
	// ErrMissingRole indicates the caller does not hold the grantor role.
	ErrMissingRole = shared.NewReason(shared.ErrUnauthorized, "MissingRole", "access: caller lacks the admin role")
	// ErrAlreadyBootstrapped indicates a super-admin already exists.
	ErrAlreadyBootstrapped = shared.NewReason(shared.ErrInvalidState, "AlreadyBootstrapped", "access: registry already bootstrapped")
)

// Grant records that Principal holds Role.
type Grant struct {
	Role      shared.Role      `json:"role"`
	Principal shared.Principal `json:"principal"`
	GrantedBy shared.Principal `json:"granted_by"`
	GrantedAt time.Time        `json:"granted_at"`
}

// Checker answers role membership questions. Membership, pool and claims
// depend on this rather than on the Service.
type Checker interface {
	HasRole(ctx context.Context, role shared.Role, principal shared.Principal) (bool, error)
}

// Repository persists grants and grantor designations.
type Repository interface {
	HasRole(ctx context.Context, role shared.Role, principal shared.Principal) (bool, error)
	InsertGrant(ctx context.Context, g Grant) error
	DeleteGrant(ctx context.Context, role shared.Role, principal shared.Principal) error
	Members(ctx context.Context, role shared.Role) ([]Grant, error)
	// RoleAdmin returns the designated grantor role; ok is false when the
	// role falls back to DEFAULT_ADMIN.
	RoleAdmin(ctx context.Context, role shared.Role) (admin shared.Role, ok bool, err error)
	SetRoleAdmin(ctx context.Context, role, admin shared.Role) error
	// Bootstrapped reports whether a super-admin was ever assigned.
	Bootstrapped(ctx context.Context) (bool, error)
	MarkBootstrapped(ctx context.Context, superAdmin shared.Principal, at time.Time) error
}
