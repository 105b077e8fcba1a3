package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindUserWithRoles(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, id int64) (User, error)
	FindRolesByIDs(ctx context.Context, ids []int64) ([]rbac.Role, error)
	SetTestingMode(ctx context.Context, userID int64, enabled bool, access rbac.Access) error
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, meta SessionMeta) error
	DeleteSession(ctx context.Context, id string) error
	SessionExists(ctx context.Context, id string) (bool, error)
	PurgeExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, user_type, password_hash, is_active,
	testing_mode, testing_allowed, testing_disallowed, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Type, &u.PasswordHash, &u.IsActive,
		&u.TestingMode, &u.TestingAccess.Allowed, &u.TestingAccess.Disallowed, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// FindUserWithRoles fetches a user by case-folded email with every held role.
func (r *PGRepository) FindUserWithRoles(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, email)
	return r.withRoles(ctx, row)
}

// FindUserByID fetches a user by id with every held role.
func (r *PGRepository) FindUserByID(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.withRoles(ctx, row)
}

func (r *PGRepository) withRoles(ctx context.Context, row pgx.Row) (User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: load user: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.name, r.description, r.allowed, r.disallowed, r.created_at, r.updated_at
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 ORDER BY r.id`, user.ID)
	if err != nil {
		return User{}, fmt.Errorf("auth: load roles: %w", err)
	}
	user.Roles, err = collectRoles(rows)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// FindRolesByIDs returns the requested roles; any missing id yields ErrRoleNotFound.
func (r *PGRepository) FindRolesByIDs(ctx context.Context, ids []int64) ([]rbac.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, allowed, disallowed, created_at, updated_at
		FROM roles WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("auth: load roles: %w", err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return nil, err
	}
	if missing := missingRoleIDs(ids, roles); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", shared.ErrRoleNotFound, missing)
	}
	return roles, nil
}

// SetTestingMode stores the testing flag and its temporary access.
func (r *PGRepository) SetTestingMode(ctx context.Context, userID int64, enabled bool, access rbac.Access) error {
	if access.Allowed == nil {
		access.Allowed = []string{}
	}
	if access.Disallowed == nil {
		access.Disallowed = []string{}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET testing_mode = $2, testing_allowed = $3, testing_disallowed = $4, updated_at = NOW()
		WHERE id = $1`, userID, enabled, access.Allowed, access.Disallowed)
	if err != nil {
		return fmt.Errorf("auth: set testing mode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, meta SessionMeta) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`, id, userID, expiresAt.UTC(), meta.IP, meta.UserAgent)
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// SessionExists reports whether an unexpired session record exists for id.
func (r *PGRepository) SessionExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1 AND expires_at > NOW())`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("auth: session lookup: %w", err)
	}
	return exists, nil
}

// PurgeExpiredSessions deletes session records that expired before the cutoff.
func (r *PGRepository) PurgeExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("auth: purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectRoles(rows pgx.Rows) ([]rbac.Role, error) {
	defer rows.Close()
	var roles []rbac.Role
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Allowed, &role.Disallowed, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("auth: scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: iterate roles: %w", err)
	}
	return roles, nil
}

func missingRoleIDs(ids []int64, roles []rbac.Role) []int64 {
	found := make(map[int64]struct{}, len(roles))
	for _, role := range roles {
		found[role.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

var _ Repository = (*PGRepository)(nil)
