package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthpool/riskpool/internal/platform/db"
)

// PostgresRepository stores claims in the claims table. Ids come from its
// BIGSERIAL sequence.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a repository bound to pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

const insertClaim = `INSERT INTO claims (participant, amount, status, treatment_type, patient_code, submitted_at, payout)
VALUES ($1, $2::numeric, $3, $4, $5, $6, $7)
RETURNING id`

func (r *PostgresRepository) Insert(ctx context.Context, c Claim) (int64, error) {
	var id int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, insertClaim,
		c.Participant.String(), c.Amount.String(), string(c.Status), string(c.TreatmentType),
		c.PatientCode, c.SubmittedAt, string(c.Payout)).Scan(&id)
	return id, err
}

const claimColumns = `id, participant, amount::text, status, treatment_type, patient_code,
submitted_at, decided_at, COALESCE(decided_by, ''), payout, paid_at`

func scanClaim(row pgx.Row) (Claim, error) {
	var (
		c                                      Claim
		participant, amount, status, treatment string
		decidedBy, payout                      string
		decidedAt, paidAt                      *time.Time
	)
	if err := row.Scan(&c.ID, &participant, &amount, &status, &treatment, &c.PatientCode,
		&c.SubmittedAt, &decidedAt, &decidedBy, &payout, &paidAt); err != nil {
		return Claim{}, err
	}
	var err error
	if c.Participant, err = db.ParsePrincipal(participant); err != nil {
		return Claim{}, err
	}
	if c.Amount, err = db.ParseAmount(amount); err != nil {
		return Claim{}, err
	}
	if decidedBy != "" {
		if c.DecidedBy, err = db.ParsePrincipal(decidedBy); err != nil {
			return Claim{}, err
		}
	}
	c.Status = Status(status)
	c.TreatmentType = TreatmentType(treatment)
	c.Payout = PayoutState(payout)
	c.DecidedAt = decidedAt
	c.PaidAt = paidAt
	return c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Claim, bool, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	c, err := scanClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Claim{}, false, nil
	}
	if err != nil {
		return Claim{}, false, err
	}
	return c, true, nil
}

const updateClaim = `UPDATE claims SET status = $2, decided_at = $3, decided_by = $4, payout = $5, paid_at = $6
WHERE id = $1`

func (r *PostgresRepository) Save(ctx context.Context, c Claim) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, updateClaim,
		c.ID, string(c.Status), c.DecidedAt, db.NullPrincipal(c.DecidedBy), string(c.Payout), c.PaidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Claim, error) {
	var (
		where []string
		args  []any
	)
	if !f.Participant.IsZero() {
		args = append(args, f.Participant.String())
		where = append(where, fmt.Sprintf("participant = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
