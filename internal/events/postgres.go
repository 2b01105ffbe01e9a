package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthpool/riskpool/internal/platform/db"
	"github.com/healthpool/riskpool/internal/shared"
)

// PostgresSink writes events into audit_events.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink returns a new PostgresSink.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (s *PostgresSink) Name() string { return "postgres" }

// Publish persists the event.
func (s *PostgresSink) Publish(ctx context.Context, ev Event) error {
	if s == nil || s.pool == nil {
		return errors.New("events: postgres sink not initialised")
	}
	if ev.Type == "" {
		return errors.New("events: event type required")
	}
	meta := ev.Data
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO audit_events (id, type, actor, subject, claim_id, amount, meta, occurred_at)
VALUES ($1, $2, COALESCE($3, ''), $4, $5, $6::numeric, $7, $8)`,
		ev.ID, string(ev.Type), db.NullPrincipal(ev.Actor), db.NullPrincipal(ev.Subject), nullClaim(ev.ClaimID), ev.Amount.String(), metaJSON, ev.At)
	return err
}

// List reads events oldest first.
func (s *PostgresSink) List(ctx context.Context, f Filter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if !f.Principal.IsZero() {
		args = append(args, f.Principal.String())
		where = append(where, fmt.Sprintf("(actor = $%d OR subject = $%d)", len(args), len(args)))
	}
	if f.ClaimID != 0 {
		args = append(args, f.ClaimID)
		where = append(where, fmt.Sprintf("claim_id = $%d", len(args)))
	}
	query := `SELECT id, type, COALESCE(actor, ''), COALESCE(subject, ''), COALESCE(claim_id, 0), COALESCE(amount, 0)::text, meta, occurred_at FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			ev             Event
			typ            string
			actor, subject string
			amount         string
			meta           []byte
		)
		if err := rows.Scan(&ev.ID, &typ, &actor, &subject, &ev.ClaimID, &amount, &meta, &ev.At); err != nil {
			return nil, err
		}
		ev.Type = Type(typ)
		if ev.Actor, err = optionalPrincipal(actor); err != nil {
			return nil, err
		}
		if ev.Subject, err = optionalPrincipal(subject); err != nil {
			return nil, err
		}
		if ev.Amount, err = db.ParseAmount(amount); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &ev.Data); err != nil {
				return nil, err
			}
			if len(ev.Data) == 0 {
				ev.Data = nil
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullClaim(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func optionalPrincipal(raw string) (shared.Principal, error) {
	if raw == "" {
		return shared.Principal{}, nil
	}
	return db.ParsePrincipal(raw)
}
