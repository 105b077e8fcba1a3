package roles

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

const roleColumns = `id, name, description, allowed, disallowed, created_at, updated_at`

var sortColumns = map[string]string{
	"id":         "id",
	"name":       "lower(name)",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func scanRole(row pgx.Row) (rbac.Role, error) {
	var role rbac.Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Allowed, &role.Disallowed, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context, filters RoleListFilters) ([]rbac.Role, error) {
	column, ok := sortColumns[filters.SortBy]
	if !ok {
		column = "id"
	}
	dir := "ASC"
	if filters.SortDir == "desc" {
		dir = "DESC"
	}
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY `+column+` `+dir)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []rbac.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, fmt.Errorf("%w: id %d", shared.ErrRoleNotFound, id)
		}
		return rbac.Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, in RoleInput) (rbac.Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `INSERT INTO roles (name, description, allowed, disallowed)
		VALUES ($1, $2, $3, $4) RETURNING `+roleColumns, in.Name, in.Description, in.Allowed, in.Disallowed))
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return rbac.Role{}, fmt.Errorf("%w: role %q already exists", shared.ErrConflict, in.Name)
		}
		return rbac.Role{}, err
	}
	return role, nil
}

// UpdateRole rewrites a role and hands its holders to hook before commit.
func (r *Repository) UpdateRole(ctx context.Context, id int64, in RoleInput, hook HolderHook) (rbac.Role, error) {
	var role rbac.Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		role, err = scanRole(tx.QueryRow(ctx, `UPDATE roles SET name = $2, description = $3, allowed = $4, disallowed = $5, updated_at = NOW()
			WHERE id = $1 RETURNING `+roleColumns, id, in.Name, in.Description, in.Allowed, in.Disallowed))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: id %d", shared.ErrRoleNotFound, id)
			}
			if shared.IsUniqueViolation(err) {
				return fmt.Errorf("%w: role %q already exists", shared.ErrConflict, in.Name)
			}
			return err
		}
		holders, err := roleHolders(ctx, tx, id)
		if err != nil {
			return err
		}
		return hook(ctx, holders)
	})
	return role, err
}

// DeleteRole detaches the role from every holder and removes it in one
// transaction; hook receives the former holders before commit.
func (r *Repository) DeleteRole(ctx context.Context, id int64, hook HolderHook) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: id %d", shared.ErrRoleNotFound, id)
		}
		holders, err := roleHolders(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
			return err
		}
		return hook(ctx, holders)
	})
}

func roleHolders(ctx context.Context, tx pgx.Tx, roleID int64) ([]int64, error) {
	rows, err := tx.Query(ctx, `SELECT user_id FROM user_roles WHERE role_id = $1 ORDER BY user_id FOR UPDATE`, roleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
