package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/db"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, user_type, is_active, testing_mode, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Type, &u.IsActive, &u.TestingMode, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListUsers returns one page of users and the total count.
func (r *Repository) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range users {
		if users[i].Roles, err = loadRoles(ctx, r.pool, users[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return users, total, nil
}

// GetUser fetches a user with its roles.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	return getUser(ctx, r.pool, id)
}

// CreateUser inserts an account and its role assignments.
func (r *Repository) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO users (email, name, user_type, password_hash)
			VALUES ($1, $2, $3, $4) RETURNING id`, nu.Email, nu.Name, nu.Type, nu.PasswordHash).Scan(&id)
		if err != nil {
			if shared.IsUniqueViolation(err) {
				return fmt.Errorf("%w: email %q already registered", shared.ErrConflict, nu.Email)
			}
			return err
		}
		return replaceRoles(ctx, tx, id, nu.RoleIDs)
	})
	if err != nil {
		return User{}, err
	}
	return r.GetUser(ctx, id)
}

// SetRoles replaces the roles held by a user.
func (r *Repository) SetRoles(ctx context.Context, id int64, roleIDs []int64, hook UserHook) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, id); err != nil {
			return err
		}
		if err := replaceRoles(ctx, tx, id, roleIDs); err != nil {
			return err
		}
		return hook(ctx, id)
	})
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool, hook UserHook) error {
	return r.update(ctx, id, hook, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

// SetPasswordHash stores a new password hash.
func (r *Repository) SetPasswordHash(ctx context.Context, id int64, hash string, hook UserHook) error {
	return r.update(ctx, id, hook, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

// DeleteUser removes a user; role assignments cascade.
func (r *Repository) DeleteUser(ctx context.Context, id int64, hook UserHook) error {
	return r.update(ctx, id, hook, `DELETE FROM users WHERE id = $1`, id)
}

func (r *Repository) update(ctx context.Context, id int64, hook UserHook, sql string, args ...any) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: id %d", shared.ErrUserNotFound, id)
		}
		return hook(ctx, id)
	})
}

func getUser(ctx context.Context, q querier, id int64) (User, error) {
	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("%w: id %d", shared.ErrUserNotFound, id)
		}
		return User{}, err
	}
	if u.Roles, err = loadRoles(ctx, q, id); err != nil {
		return User{}, err
	}
	return u, nil
}

func loadRoles(ctx context.Context, q querier, userID int64) ([]rbac.Role, error) {
	rows, err := q.Query(ctx, `SELECT r.id, r.name, r.description, r.allowed, r.disallowed, r.created_at, r.updated_at
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1 ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []rbac.Role{}
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Allowed, &role.Disallowed, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func lockUser(ctx context.Context, tx pgx.Tx, id int64) error {
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id %d", shared.ErrUserNotFound, id)
	}
	return err
}

func replaceRoles(ctx context.Context, tx pgx.Tx, userID int64, roleIDs []int64) error {
	if len(roleIDs) > 0 {
		var found int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE id = ANY($1)`, roleIDs).Scan(&found); err != nil {
			return err
		}
		if found != len(roleIDs) {
			return fmt.Errorf("%w: one of %v", shared.ErrRoleNotFound, roleIDs)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID); err != nil {
			if shared.IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: id %d", shared.ErrRoleNotFound, roleID)
			}
			return err
		}
	}
	return nil
}
