package rbac

import (
	"slices"
	"time"
)

// Role is a named bundle of granted and denied capabilities.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Allowed     []string  `json:"allowed"`
	Disallowed  []string  `json:"disallowed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents a declared capability.
type Permission struct {
	Name   string `json:"name"`
	Module string `json:"module"`
}

// Access is the resolved capability snapshot of a session. Values produced by
// Resolve are deduplicated and sorted.
type Access struct {
	Allowed    []string `json:"allowed"`
	Disallowed []string `json:"disallowed"`
}

// IsEmpty reports whether the access grants and denies nothing.
func (a Access) IsEmpty() bool {
	return len(a.Allowed) == 0 && len(a.Disallowed) == 0
}

// Equal compares two access values element by element.
func (a Access) Equal(b Access) bool {
	return slices.Equal(a.Allowed, b.Allowed) && slices.Equal(a.Disallowed, b.Disallowed)
}

// Principal describes the authenticated actor decoded from a credential.
type Principal struct {
	UserID        int64
	Email         string
	UserType      string
	Access        Access
	TestingMode   bool
	TestingAccess Access
	TokenID       string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}
