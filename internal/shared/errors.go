package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing, garbled or otherwise unusable credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenExpired indicates a well-formed credential past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden indicates a valid identity that failed the access decision.
	ErrForbidden = errors.New("forbidden")
	// ErrSessionRevoked indicates a refresh blocked by an invalidation mark.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrRoleNotFound indicates an administrative mutation referencing a missing role.
	ErrRoleNotFound = errors.New("role not found")
	// ErrUserNotFound indicates an administrative mutation referencing a missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrConflict indicates a uniqueness violation such as a duplicate role name.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
)

// IsDomainError reports whether err wraps one of the sentinels above.
// Anything else is an infrastructure failure worth logging.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInvalidCredentials, ErrUnauthenticated, ErrTokenExpired,
		ErrForbidden, ErrSessionRevoked, ErrRoleNotFound, ErrUserNotFound,
		ErrConflict, ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
