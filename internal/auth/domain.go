package auth

import (
	"time"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
)

// User types recognised by the platform.
const (
	UserTypeStaff    = "staff"
	UserTypeFaculty  = "faculty"
	UserTypeStudent  = "student"
	UserTypeExternal = "external"
)

// User represents an authenticated user account together with its roles.
type User struct {
	ID            int64
	Email         string
	Name          string
	Type          string
	PasswordHash  string
	IsActive      bool
	Roles         []rbac.Role
	TestingMode   bool
	TestingAccess rbac.Access
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Access resolves the user's effective capabilities.
func (u User) Access() rbac.Access {
	return rbac.ResolveUser(u.IsActive, u.Roles)
}

// Subject converts the user into the payload of an access credential.
func (u User) Subject() Subject {
	return Subject{
		UserID:        u.ID,
		Email:         u.Email,
		UserType:      u.Type,
		Access:        u.Access(),
		TestingMode:   u.TestingMode,
		TestingAccess: u.TestingAccess,
	}
}

// SessionMeta carries request metadata recorded with a login session.
type SessionMeta struct {
	IP        string
	UserAgent string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User   User
	Tokens TokenPair
}

// AccessToken is a freshly minted access credential.
type AccessToken struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}
