package access

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

// MemoryRepository keeps grants in process memory. Mutations register undo
// closures with the enclosing unit of work.
type MemoryRepository struct {
	mu     sync.RWMutex
	grants map[shared.Role]map[shared.Principal]Grant
	admins map[shared.Role]shared.Role

	// bootstrapped survives the last DEFAULT_ADMIN renouncing.
	bootstrapped bool
}

// NewMemoryRepository constructs an empty registry store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		grants: make(map[shared.Role]map[shared.Principal]Grant),
		admins: make(map[shared.Role]shared.Role),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) HasRole(_ context.Context, role shared.Role, principal shared.Principal) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.grants[role][principal]
	return ok, nil
}

func (r *MemoryRepository) InsertGrant(ctx context.Context, g Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	holders, ok := r.grants[g.Role]
	if !ok {
		holders = make(map[shared.Principal]Grant)
		r.grants[g.Role] = holders
	}
	prev, existed := holders[g.Principal]
	holders[g.Principal] = g
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			holders[g.Principal] = prev
			return
		}
		delete(holders, g.Principal)
	})
	return nil
}

func (r *MemoryRepository) DeleteGrant(ctx context.Context, role shared.Role, principal shared.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.grants[role][principal]
	if !ok {
		return nil
	}
	delete(r.grants[role], principal)
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.grants[role][principal] = prev
	})
	return nil
}

func (r *MemoryRepository) Members(_ context.Context, role shared.Role) ([]Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Grant, 0, len(r.grants[role]))
	for _, g := range r.grants[role] {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GrantedAt.Equal(out[j].GrantedAt) {
			return out[i].Principal.String() < out[j].Principal.String()
		}
		return out[i].GrantedAt.Before(out[j].GrantedAt)
	})
	return out, nil
}

func (r *MemoryRepository) RoleAdmin(_ context.Context, role shared.Role) (shared.Role, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, ok := r.admins[role]
	return admin, ok, nil
}

func (r *MemoryRepository) SetRoleAdmin(ctx context.Context, role, admin shared.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.admins[role]
	r.admins[role] = admin
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			r.admins[role] = prev
			return
		}
		delete(r.admins, role)
	})
	return nil
}

func (r *MemoryRepository) Bootstrapped(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bootstrapped, nil
}

func (r *MemoryRepository) MarkBootstrapped(ctx context.Context, _ shared.Principal, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.bootstrapped
	r.bootstrapped = true
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.bootstrapped = prev
	})
	return nil
}
