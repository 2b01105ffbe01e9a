package access

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthpool/riskpool/internal/platform/db"
	"github.com/healthpool/riskpool/internal/shared"
)

// PostgresRepository stores grants in role_grants and role_admins, and the
// one-time bootstrap marker in access_bootstrap.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a repository bound to pool. Queries join the
// transaction carried by the context.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

const hasRole = `SELECT EXISTS (SELECT 1 FROM role_grants WHERE role = $1 AND principal = $2)`

func (r *PostgresRepository) HasRole(ctx context.Context, role shared.Role, principal shared.Principal) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, hasRole, string(role), principal.String()).Scan(&ok)
	return ok, err
}

const insertGrant = `INSERT INTO role_grants (role, principal, granted_by, granted_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (role, principal) DO NOTHING`

func (r *PostgresRepository) InsertGrant(ctx context.Context, g Grant) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, insertGrant, string(g.Role), g.Principal.String(), g.GrantedBy.String(), g.GrantedAt)
	return err
}

const deleteGrant = `DELETE FROM role_grants WHERE role = $1 AND principal = $2`

func (r *PostgresRepository) DeleteGrant(ctx context.Context, role shared.Role, principal shared.Principal) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, deleteGrant, string(role), principal.String())
	return err
}

const listMembers = `SELECT principal, granted_by, granted_at FROM role_grants
WHERE role = $1
ORDER BY granted_at, principal`

func (r *PostgresRepository) Members(ctx context.Context, role shared.Role) ([]Grant, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, listMembers, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Grant
	for rows.Next() {
		var (
			principal, grantedBy string
			grantedAt            time.Time
		)
		if err := rows.Scan(&principal, &grantedBy, &grantedAt); err != nil {
			return nil, err
		}
		g := Grant{Role: role, GrantedAt: grantedAt}
		if g.Principal, err = db.ParsePrincipal(principal); err != nil {
			return nil, err
		}
		if g.GrantedBy, err = db.ParsePrincipal(grantedBy); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

const getRoleAdmin = `SELECT admin_role FROM role_admins WHERE role = $1`

func (r *PostgresRepository) RoleAdmin(ctx context.Context, role shared.Role) (shared.Role, bool, error) {
	var admin string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, getRoleAdmin, string(role)).Scan(&admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return shared.Role(admin), true, nil
}

const upsertRoleAdmin = `INSERT INTO role_admins (role, admin_role) VALUES ($1, $2)
ON CONFLICT (role) DO UPDATE SET admin_role = EXCLUDED.admin_role`

func (r *PostgresRepository) SetRoleAdmin(ctx context.Context, role, admin shared.Role) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, upsertRoleAdmin, string(role), string(admin))
	return err
}

const getBootstrapped = `SELECT EXISTS (SELECT 1 FROM access_bootstrap)`

func (r *PostgresRepository) Bootstrapped(ctx context.Context) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, getBootstrapped).Scan(&ok)
	return ok, err
}

const insertBootstrap = `INSERT INTO access_bootstrap (id, super_admin, bootstrapped_at) VALUES (1, $1, $2)`

func (r *PostgresRepository) MarkBootstrapped(ctx context.Context, superAdmin shared.Principal, at time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, insertBootstrap, superAdmin.String(), at)
	return err
}
