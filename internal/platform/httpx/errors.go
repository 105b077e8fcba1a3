// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Error codes carried in the problem body.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeExpired         = "EXPIRED"
	CodeSessionRevoked  = "SESSION_REVOKED"
	CodeForbidden       = "FORBIDDEN"
	CodeRoleNotFound    = "ROLE_NOT_FOUND"
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeValidation      = "VALIDATION"
	CodeInternal        = "INTERNAL"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Authentication and authorization failures never carry detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrTokenExpired):
		Problem(w, http.StatusUnauthorized, "Token Expired", CodeExpired, "")
	case errors.Is(err, shared.ErrSessionRevoked):
		Problem(w, http.StatusUnauthorized, "Session Revoked", CodeSessionRevoked, "")
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", CodeUnauthenticated, "")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", CodeForbidden, "")
	case errors.Is(err, shared.ErrRoleNotFound):
		Problem(w, http.StatusNotFound, "Role Not Found", CodeRoleNotFound, err.Error())
	case errors.Is(err, shared.ErrUserNotFound):
		Problem(w, http.StatusNotFound, "User Not Found", CodeUserNotFound, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", CodeNotFound, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", CodeConflict, err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", CodeValidation, err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", CodeInternal, "")
	}
}
