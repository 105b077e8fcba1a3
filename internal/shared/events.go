package shared

import (
	"context"
	"strconv"
)

// Reasons attached to AccessChangedEvent.
const (
	AccessChangeRoleAssignment = "role_assignment"
	AccessChangeRoleEdited     = "role_edited"
	AccessChangeRoleDeleted    = "role_deleted"
	AccessChangeDeactivated    = "user_deactivated"
	AccessChangeUserDeleted    = "user_deleted"
	AccessChangeIdentity       = "identity_changed"
)

// AccessChangedEvent is emitted whenever a mutation can alter what a user may do.
type AccessChangedEvent struct {
	UserIDs []int64
	Reason  string
}

// UserKeys returns the invalidation keys for every affected user.
func (e AccessChangedEvent) UserKeys() []string {
	keys := make([]string, 0, len(e.UserIDs))
	for _, id := range e.UserIDs {
		keys = append(keys, UserKey(id))
	}
	return keys
}

// UserKey renders the key identifying a user across the session lifecycle.
func UserKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// AccessChangeHandler receives access change events. Implementations must be
// synchronous: an error aborts the triggering mutation.
type AccessChangeHandler interface {
	HandleAccessChanged(ctx context.Context, evt AccessChangedEvent) error
}
