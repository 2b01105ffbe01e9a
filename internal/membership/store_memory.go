package membership

import (
	"context"
	"sort"
	"sync"

	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

// MemoryRepository keeps membership state in process memory.
type MemoryRepository struct {
	mu           sync.RWMutex
	fees         map[Tier]Fee
	participants map[shared.Principal]Participant
	providers    map[shared.Principal]Provider
	treasury     shared.Amount
}

// NewMemoryRepository constructs an empty membership store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		fees:         make(map[Tier]Fee),
		participants: make(map[shared.Principal]Participant),
		providers:    make(map[shared.Principal]Provider),
	}
}

var _ Repository = (*MemoryRepository)(nil)

// put stores v under k and registers its undo with the enclosing unit.
func put[K comparable, V any](ctx context.Context, mu *sync.RWMutex, m map[K]V, k K, v V) {
	prev, existed := m[k]
	m[k] = v
	txn.OnRollback(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		if existed {
			m[k] = prev
			return
		}
		delete(m, k)
	})
}

func (r *MemoryRepository) GetFee(_ context.Context, tier Tier) (Fee, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fee, ok := r.fees[tier]
	return fee, ok, nil
}

func (r *MemoryRepository) SetFee(ctx context.Context, fee Fee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	put(ctx, &r.mu, r.fees, fee.Tier, fee)
	return nil
}

func (r *MemoryRepository) ListFees(context.Context) ([]Fee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Fee, 0, len(r.fees))
	for _, tier := range Tiers() {
		if fee, ok := r.fees[tier]; ok {
			out = append(out, fee)
		}
	}
	return out, nil
}

func (r *MemoryRepository) GetParticipant(_ context.Context, p shared.Principal) (Participant, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.participants[p]
	return rec, ok, nil
}

func (r *MemoryRepository) SaveParticipant(ctx context.Context, p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	put(ctx, &r.mu, r.participants, p.Principal, p)
	return nil
}

func (r *MemoryRepository) ListParticipants(context.Context) ([]Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].Principal.String() < out[j].Principal.String()
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

func (r *MemoryRepository) GetProvider(_ context.Context, p shared.Principal) (Provider, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.providers[p]
	return rec, ok, nil
}

func (r *MemoryRepository) SaveProvider(ctx context.Context, p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	put(ctx, &r.mu, r.providers, p.Principal, p)
	return nil
}

func (r *MemoryRepository) CreditTreasury(ctx context.Context, amount shared.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := r.treasury.Add(amount)
	if err != nil {
		return err
	}
	prev := r.treasury
	r.treasury = next
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.treasury = prev
	})
	return nil
}

func (r *MemoryRepository) TreasuryTotal(context.Context) (shared.Amount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.treasury, nil
}
