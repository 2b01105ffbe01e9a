package membership

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthpool/riskpool/internal/platform/db"
	"github.com/healthpool/riskpool/internal/shared"
)

// PostgresRepository stores membership state in tier_fees, participants,
// providers and treasury.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a repository bound to pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

const getFee = `SELECT amount::text, updated_at FROM tier_fees WHERE tier = $1`

func (r *PostgresRepository) GetFee(ctx context.Context, tier Tier) (Fee, bool, error) {
	var raw string
	fee := Fee{Tier: tier}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, getFee, string(tier)).Scan(&raw, &fee.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fee{}, false, nil
	}
	if err != nil {
		return Fee{}, false, err
	}
	if fee.Amount, err = db.ParseAmount(raw); err != nil {
		return Fee{}, false, err
	}
	return fee, true, nil
}

const upsertFee = `INSERT INTO tier_fees (tier, amount, updated_at) VALUES ($1, $2::numeric, $3)
ON CONFLICT (tier) DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`

func (r *PostgresRepository) SetFee(ctx context.Context, fee Fee) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, upsertFee, string(fee.Tier), fee.Amount.String(), fee.UpdatedAt)
	return err
}

const listFees = `SELECT tier, amount::text, updated_at FROM tier_fees
ORDER BY CASE tier WHEN 'BASIC' THEN 1 WHEN 'STANDARD' THEN 2 WHEN 'PREMIUM' THEN 3 ELSE 4 END`

func (r *PostgresRepository) ListFees(ctx context.Context) ([]Fee, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, listFees)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Fee
	for rows.Next() {
		var (
			tier, raw string
			fee       Fee
		)
		if err := rows.Scan(&tier, &raw, &fee.UpdatedAt); err != nil {
			return nil, err
		}
		fee.Tier = Tier(tier)
		if fee.Amount, err = db.ParseAmount(raw); err != nil {
			return nil, err
		}
		out = append(out, fee)
	}
	return out, rows.Err()
}

const participantColumns = `principal, tier, registered_at, last_paid_at, total_paid::text`

func scanParticipant(row pgx.Row) (Participant, error) {
	var (
		principal, tier, total string
		p                      Participant
	)
	if err := row.Scan(&principal, &tier, &p.RegisteredAt, &p.LastPaidAt, &total); err != nil {
		return Participant{}, err
	}
	var err error
	if p.Principal, err = db.ParsePrincipal(principal); err != nil {
		return Participant{}, err
	}
	if p.TotalPaid, err = db.ParseAmount(total); err != nil {
		return Participant{}, err
	}
	p.Tier = Tier(tier)
	return p, nil
}

func (r *PostgresRepository) GetParticipant(ctx context.Context, principal shared.Principal) (Participant, bool, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE principal = $1`, principal.String())
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Participant{}, false, nil
	}
	if err != nil {
		return Participant{}, false, err
	}
	return p, true, nil
}

const upsertParticipant = `INSERT INTO participants (principal, tier, registered_at, last_paid_at, total_paid)
VALUES ($1, $2, $3, $4, $5::numeric)
ON CONFLICT (principal) DO UPDATE SET last_paid_at = EXCLUDED.last_paid_at, total_paid = EXCLUDED.total_paid`

func (r *PostgresRepository) SaveParticipant(ctx context.Context, p Participant) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, upsertParticipant,
		p.Principal.String(), string(p.Tier), p.RegisteredAt, p.LastPaidAt, p.TotalPaid.String())
	return err
}

func (r *PostgresRepository) ListParticipants(ctx context.Context) ([]Participant, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY registered_at, principal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const getProvider = `SELECT state, registered_at, decided_at, COALESCE(decided_by, '') FROM providers WHERE principal = $1`

func (r *PostgresRepository) GetProvider(ctx context.Context, principal shared.Principal) (Provider, bool, error) {
	var (
		state, decidedBy string
		decidedAt        *time.Time
	)
	p := Provider{Principal: principal}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, getProvider, principal.String()).Scan(&state, &p.RegisteredAt, &decidedAt, &decidedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return Provider{}, false, nil
	}
	if err != nil {
		return Provider{}, false, err
	}
	p.State = ProviderState(state)
	p.DecidedAt = decidedAt
	if decidedBy != "" {
		if p.DecidedBy, err = db.ParsePrincipal(decidedBy); err != nil {
			return Provider{}, false, err
		}
	}
	return p, true, nil
}

const upsertProvider = `INSERT INTO providers (principal, state, registered_at, decided_at, decided_by)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (principal) DO UPDATE SET state = EXCLUDED.state, decided_at = EXCLUDED.decided_at, decided_by = EXCLUDED.decided_by`

func (r *PostgresRepository) SaveProvider(ctx context.Context, p Provider) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, upsertProvider,
		p.Principal.String(), string(p.State), p.RegisteredAt, p.DecidedAt, db.NullPrincipal(p.DecidedBy))
	return err
}

const creditTreasury = `UPDATE treasury SET collected = collected + $1::numeric WHERE id = 1`

func (r *PostgresRepository) CreditTreasury(ctx context.Context, amount shared.Amount) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, creditTreasury, amount.String())
	return err
}

const treasuryTotal = `SELECT collected::text FROM treasury WHERE id = 1`

func (r *PostgresRepository) TreasuryTotal(ctx context.Context) (shared.Amount, error) {
	var raw string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, treasuryTotal).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return db.ParseAmount(raw)
}
