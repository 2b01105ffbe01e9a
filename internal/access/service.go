package access

import (
	"context"
	"time"

	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

// Service coordinates role grants.
type Service struct {
	repo   Repository
	runner txn.Runner
	events events.Emitter
	now    func() time.Time
}

// NewService constructs the access registry.
func NewService(repo Repository, runner txn.Runner, emitter events.Emitter) *Service {
	if emitter == nil {
		emitter = events.Discard
	}
	return &Service{repo: repo, runner: runner, events: emitter, now: time.Now}
}

// WithNow overrides the clock used to stamp grants.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

var _ Checker = (*Service)(nil)

// Bootstrap grants DEFAULT_ADMIN to superAdmin. It succeeds exactly once per
// store: the marker it leaves outlives every later grant, revocation and
// renunciation, so an emptied DEFAULT_ADMIN role stays empty.
func (s *Service) Bootstrap(ctx context.Context, superAdmin shared.Principal) error {
	if superAdmin.IsZero() {
		return ErrZeroPrincipal
	}
	return s.runner.Run(ctx, func(ctx context.Context) error {
		done, err := s.repo.Bootstrapped(ctx)
		if err != nil {
			return err
		}
		if done {
			return ErrAlreadyBootstrapped
		}
		// Stores seeded before the marker existed still carry their super-admin.
		members, err := s.repo.Members(ctx, shared.RoleDefaultAdmin)
		if err != nil {
			return err
		}
		if len(members) > 0 {
			return ErrAlreadyBootstrapped
		}
		if err := s.grant(ctx, superAdmin, shared.RoleDefaultAdmin, superAdmin); err != nil {
			return err
		}
		return s.repo.MarkBootstrapped(ctx, superAdmin, s.now().UTC())
	})
}

// GrantRole gives role to principal. Granting a held role is a no-op.
func (s *Service) GrantRole(ctx context.Context, caller shared.Principal, role shared.Role, principal shared.Principal) error {
	if err := validate(role, principal); err != nil {
		return err
	}
	return s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.authorize(ctx, caller, role); err != nil {
			return err
		}
		held, err := s.repo.HasRole(ctx, role, principal)
		if err != nil || held {
			return err
		}
		return s.grant(ctx, caller, role, principal)
	})
}

// RevokeRole removes role from principal. Revoking an absent role is a no-op.
func (s *Service) RevokeRole(ctx context.Context, caller shared.Principal, role shared.Role, principal shared.Principal) error {
	if err := validate(role, principal); err != nil {
		return err
	}
	return s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.authorize(ctx, caller, role); err != nil {
			return err
		}
		return s.revoke(ctx, caller, role, principal)
	})
}

// RenounceRole drops a role the caller holds.
func (s *Service) RenounceRole(ctx context.Context, caller shared.Principal, role shared.Role) error {
	if err := validate(role, caller); err != nil {
		return err
	}
	return s.runner.Run(ctx, func(ctx context.Context) error {
		return s.revoke(ctx, caller, role, caller)
	})
}

// SetRoleAdmin designates adminRole as the grantor of role.
func (s *Service) SetRoleAdmin(ctx context.Context, caller shared.Principal, role, adminRole shared.Role) error {
	if !role.Valid() || !adminRole.Valid() {
		return ErrUnknownRole
	}
	return s.runner.Run(ctx, func(ctx context.Context) error {
		ok, err := s.repo.HasRole(ctx, shared.RoleDefaultAdmin, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMissingRole
		}
		previous, err := s.roleAdmin(ctx, role)
		if err != nil {
			return err
		}
		if previous == adminRole {
			return nil
		}
		if err := s.repo.SetRoleAdmin(ctx, role, adminRole); err != nil {
			return err
		}
		s.events.Emit(ctx, events.Event{
			Type:  events.RoleAdminChanged,
			Actor: caller,
			Data: map[string]string{
				"role":     string(role),
				"previous": string(previous),
				"admin":    string(adminRole),
			},
		})
		return nil
	})
}

// HasRole reports whether principal currently holds role.
func (s *Service) HasRole(ctx context.Context, role shared.Role, principal shared.Principal) (bool, error) {
	if !role.Valid() {
		return false, ErrUnknownRole
	}
	if principal.IsZero() {
		return false, nil
	}
	return s.repo.HasRole(ctx, role, principal)
}

// RoleAdmin returns the grantor role for role.
func (s *Service) RoleAdmin(ctx context.Context, role shared.Role) (shared.Role, error) {
	if !role.Valid() {
		return "", ErrUnknownRole
	}
	return s.roleAdmin(ctx, role)
}

// Members lists the current holders of role ordered by grant time.
func (s *Service) Members(ctx context.Context, role shared.Role) ([]Grant, error) {
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	return s.repo.Members(ctx, role)
}

func (s *Service) roleAdmin(ctx context.Context, role shared.Role) (shared.Role, error) {
	admin, ok, err := s.repo.RoleAdmin(ctx, role)
	if err != nil {
		return "", err
	}
	if !ok {
		return shared.RoleDefaultAdmin, nil
	}
	return admin, nil
}

func (s *Service) authorize(ctx context.Context, caller shared.Principal, role shared.Role) error {
	admin, err := s.roleAdmin(ctx, role)
	if err != nil {
		return err
	}
	ok, err := s.HasRole(ctx, admin, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissingRole
	}
	return nil
}

func (s *Service) grant(ctx context.Context, caller shared.Principal, role shared.Role, principal shared.Principal) error {
	g := Grant{Role: role, Principal: principal, GrantedBy: caller, GrantedAt: s.now().UTC()}
	if err := s.repo.InsertGrant(ctx, g); err != nil {
		return err
	}
	s.events.Emit(ctx, events.Event{
		Type:    events.RoleGranted,
		Actor:   caller,
		Subject: principal,
		Data:    map[string]string{"role": string(role)},
		At:      g.GrantedAt,
	})
	return nil
}

func (s *Service) revoke(ctx context.Context, caller shared.Principal, role shared.Role, principal shared.Principal) error {
	held, err := s.repo.HasRole(ctx, role, principal)
	if err != nil || !held {
		return err
	}
	if err := s.repo.DeleteGrant(ctx, role, principal); err != nil {
		return err
	}
	s.events.Emit(ctx, events.Event{
		Type:    events.RoleRevoked,
		Actor:   caller,
		Subject: principal,
		Data:    map[string]string{"role": string(role)},
		At:      s.now().UTC(),
	})
	return nil
}

func validate(role shared.Role, principal shared.Principal) error {
	if !role.Valid() {
		return ErrUnknownRole
	}
	if principal.IsZero() {
		return ErrZeroPrincipal
	}
	return nil
}
