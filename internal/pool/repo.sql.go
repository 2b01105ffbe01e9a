package pool

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthpool/riskpool/internal/platform/db"
	"github.com/healthpool/riskpool/internal/shared"
)

// PostgresRepository stores the aggregate in the single pool_account row.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a repository bound to pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

const loadAccount = `SELECT total_deposits::text, total_admin_fees::text, total_claims_paid::text, current_balance::text
FROM pool_account WHERE id = 1`

func (r *PostgresRepository) LoadAccount(ctx context.Context) (Account, error) {
	var raw [4]string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, loadAccount).Scan(&raw[0], &raw[1], &raw[2], &raw[3])
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, nil
	}
	if err != nil {
		return Account{}, err
	}
	var (
		a    Account
		dest = []*shared.Amount{&a.TotalDeposits, &a.TotalAdminFees, &a.TotalClaimsPaid, &a.CurrentBalance}
	)
	for i, v := range raw {
		if *dest[i], err = db.ParseAmount(v); err != nil {
			return Account{}, err
		}
	}
	return a, nil
}

const saveAccount = `INSERT INTO pool_account (id, total_deposits, total_admin_fees, total_claims_paid, current_balance)
VALUES (1, $1::numeric, $2::numeric, $3::numeric, $4::numeric)
ON CONFLICT (id) DO UPDATE SET
    total_deposits = EXCLUDED.total_deposits,
    total_admin_fees = EXCLUDED.total_admin_fees,
    total_claims_paid = EXCLUDED.total_claims_paid,
    current_balance = EXCLUDED.current_balance`

func (r *PostgresRepository) SaveAccount(ctx context.Context, a Account) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, saveAccount,
		a.TotalDeposits.String(), a.TotalAdminFees.String(), a.TotalClaimsPaid.String(), a.CurrentBalance.String())
	return err
}

const creditPayout = `INSERT INTO pool_payouts (principal, credited) VALUES ($1, $2::numeric)
ON CONFLICT (principal) DO UPDATE SET credited = pool_payouts.credited + EXCLUDED.credited`

func (r *PostgresRepository) CreditPayout(ctx context.Context, recipient shared.Principal, amount shared.Amount) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, creditPayout, recipient.String(), amount.String())
	return err
}

const getPayouts = `SELECT credited::text FROM pool_payouts WHERE principal = $1`

func (r *PostgresRepository) Payouts(ctx context.Context, recipient shared.Principal) (shared.Amount, error) {
	var raw string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, getPayouts, recipient.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return db.ParseAmount(raw)
}
