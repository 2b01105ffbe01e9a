// Package events carries the audit trail of every committed ledger change.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

// Type names an observable ledger event.
type Type string

const (
	RoleGranted           Type = "role.granted"
	RoleRevoked           Type = "role.revoked"
	RoleAdminChanged      Type = "role.admin_changed"
	ParticipantRegistered Type = "participant.registered"
	MembershipPaid        Type = "membership.paid"
	FeeConfigured         Type = "membership.fee_configured"
	ProviderRegistered    Type = "provider.registered"
	ProviderApproved      Type = "provider.approved"
	ProviderRejected      Type = "provider.rejected"
	ClaimSubmitted        Type = "claim.submitted"
	ClaimApproved         Type = "claim.approved"
	ClaimRejected         Type = "claim.rejected"
	ClaimDisbursed        Type = "claim.disbursed"
	PoolDeposit           Type = "pool.deposit"
	PoolClaimPaid         Type = "pool.claim_paid"
	PoolClaimRecorded     Type = "pool.claim_recorded"
)

// Event is one audit record.
type Event struct {
	ID      uuid.UUID         `json:"id"`
	Type    Type              `json:"type"`
	Actor   shared.Principal  `json:"actor"`
	Subject shared.Principal  `json:"subject"`
	ClaimID int64             `json:"claim_id,omitempty"`
	Amount  shared.Amount     `json:"amount"`
	Data    map[string]string `json:"data,omitempty"`
	At      time.Time         `json:"at"`
}

// Involves reports whether p is the actor or subject of ev.
func (ev Event) Involves(p shared.Principal) bool {
	return ev.Actor == p || ev.Subject == p
}

// Emitter accepts events raised inside a unit of work.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Sink receives committed events.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Type      Type
	Principal shared.Principal
	ClaimID   int64
	Limit     int
}

// Match reports whether ev satisfies f, ignoring Limit.
func (f Filter) Match(ev Event) bool {
	if f.Type != "" && ev.Type != f.Type {
		return false
	}
	if !f.Principal.IsZero() && !ev.Involves(f.Principal) {
		return false
	}
	if f.ClaimID != 0 && ev.ClaimID != f.ClaimID {
		return false
	}
	return true
}

// Reader lists stored events oldest first.
type Reader interface {
	List(ctx context.Context, f Filter) ([]Event, error)
}

// Bus defers events until their unit commits, then fans them out.
//
// Events of one unit reach every sink in emission order. Across units the
// order is best-effort: delivery runs after the commit releases its lock, so
// two units committing back to back may reach a sink in either order.
// Consumers that need commit order sort on At, or use the ledger tables.
type Bus struct {
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewBus constructs a bus delivering to sinks in order.
func NewBus(logger *slog.Logger, sinks ...Sink) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{sinks: sinks, logger: logger, now: time.Now}
}

// Emit stamps ev and schedules delivery after commit. Reverted units never deliver.
func (b *Bus) Emit(ctx context.Context, ev Event) {
	if b == nil {
		return
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.At.IsZero() {
		ev.At = b.now()
	}
	txn.AfterCommit(ctx, func(ctx context.Context) {
		b.deliver(ctx, ev)
	})
}

func (b *Bus) deliver(ctx context.Context, ev Event) {
	for _, sink := range b.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			b.logger.Warn("event sink publish",
				slog.String("sink", sink.Name()),
				slog.String("event", string(ev.Type)),
				slog.Any("error", err))
		}
	}
}

// Reader returns the first sink able to list events.
func (b *Bus) Reader() (Reader, bool) {
	if b == nil {
		return nil, false
	}
	for _, sink := range b.sinks {
		if r, ok := sink.(Reader); ok {
			return r, true
		}
	}
	return nil, false
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) {}
