package postgres

import (
	"context"
	"fmt"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/user"
	"teamTracker/internal/policy"
	repo "teamTracker/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const firstAdminClaim = "first_admin"

const userColumns = `id, email, role, created_at, last_login_at, deleted, deleted_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

// CreateWithBootstrap inserts the profile and claims the first-admin slot in
// one transaction. The claim row's primary key serialises concurrent
// registrations, so exactly one of them sees the insert succeed.
func (r *UserRepo) CreateWithBootstrap(ctx context.Context, u *user.User) error {
	start := time.Now()
	defer warnIfSlow("users.create", start)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		logger.Error("Repository: Failed to begin transaction", err)
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO bootstrap_claims (name, user_id, claimed_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING`,
		firstAdminClaim, u.ID, u.CreatedAt)
	if err != nil {
		logger.Error("Repository: Failed to claim bootstrap slot", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("claim bootstrap: %w", mapError(err))
	}

	role := policy.BootstrapRole(tag.RowsAffected() == 1)

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, email, role, created_at, deleted)
			VALUES ($1, $2, $3, $4, FALSE)`,
		u.ID, u.Email, role, u.CreatedAt)
	if err != nil {
		logger.Error("Repository: Failed to insert user", err, zap.String("user_id", u.ID))
		return fmt.Errorf("insert user: %w", mapError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Failed to commit user", err)
		return fmt.Errorf("commit user: %w", mapError(err))
	}

	u.Role = role
	if role == user.RoleAdmin {
		logger.Info("Repository: First profile promoted to admin", zap.String("user_id", u.ID))
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	start := time.Now()
	defer warnIfSlow("users.get", start)

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", mapError(err))
	}
	u, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[user.User])
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, mapError(err))
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]*user.User, error) {
	start := time.Now()
	defer warnIfSlow("users.list", start)

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		logger.Error("Repository: Failed to list users", err)
		return nil, fmt.Errorf("list users: %w", mapError(err))
	}
	users, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[user.User])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", mapError(err))
	}
	return users, nil
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role user.Role) error {
	return r.exec(ctx, "users.set_role", `UPDATE users SET role = $2 WHERE id = $1`, id, role)
}

func (r *UserRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, "users.soft_delete", `UPDATE users SET deleted = TRUE, deleted_at = $2 WHERE id = $1`, id, at)
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, "users.touch_login", `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
}

func (r *UserRepo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1 AND deleted = FALSE`, user.RoleAdmin).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", mapError(err))
	}
	return n, nil
}

func (r *UserRepo) exec(ctx context.Context, op, query string, args ...any) error {
	start := time.Now()
	defer warnIfSlow(op, start)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: User update failed", err, zap.String("op", op))
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
