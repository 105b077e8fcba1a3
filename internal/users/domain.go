package users

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
)

// User represents a user account for management.
type User struct {
	ID          int64       `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	IsActive    bool        `json:"is_active"`
	TestingMode bool        `json:"testing_mode"`
	Roles       []rbac.Role `json:"roles"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Access resolves the user's effective capabilities.
func (u User) Access() rbac.Access {
	return rbac.ResolveUser(u.IsActive, u.Roles)
}

// CreateUserInput carries the fields of a new account.
type CreateUserInput struct {
	Email    string  `json:"email" validate:"required,email"`
	Name     string  `json:"name" validate:"required,max=200"`
	Type     string  `json:"type" validate:"required,oneof=staff faculty student external"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	RoleIDs  []int64 `json:"role_ids" validate:"dive,gt=0"`
}

// NewUser is a validated account ready for storage.
type NewUser struct {
	Email        string
	Name         string
	Type         string
	PasswordHash string
	RoleIDs      []int64
}

// AssignRolesInput replaces the roles held by a user.
type AssignRolesInput struct {
	RoleIDs []int64 `json:"role_ids" validate:"dive,gt=0"`
}

// PasswordInput sets a new password.
type PasswordInput struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserHook runs inside the mutating transaction. Returning an error rolls the
// mutation back.
type UserHook func(ctx context.Context, userID int64) error
