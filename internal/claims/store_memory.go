package claims

import (
	"context"
	"sort"
	"sync"

	"github.com/healthpool/riskpool/internal/platform/txn"
)

// MemoryRepository keeps claims in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	seq    int64
	claims map[int64]Claim
}

// NewMemoryRepository constructs an empty claims store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{claims: make(map[int64]Claim)}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Insert(ctx context.Context, c Claim) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = r.seq
	r.claims[c.ID] = c
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.claims, c.ID)
		if r.seq == c.ID {
			r.seq--
		}
	})
	return c.ID, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (Claim, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[id]
	return c, ok, nil
}

func (r *MemoryRepository) Save(ctx context.Context, c Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.claims[c.ID]
	r.claims[c.ID] = c
	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			r.claims[c.ID] = prev
			return
		}
		delete(r.claims, c.ID)
	})
	return nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Claim, 0, len(r.claims))
	for _, c := range r.claims {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
