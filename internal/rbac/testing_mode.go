package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// TestingOverlay substitutes the testing access for principals in testing
// mode and restricts them to read-only methods. Other principals pass
// through unchanged.
func (m Middleware) TestingOverlay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || !principal.TestingMode {
			next.ServeHTTP(w, r)
			return
		}
		if !readOnlyMethod(r.Method) {
			m.observe(OutcomeTestingReadOnly)
			m.logger().Info("testing mode write rejected",
				slog.Int64("user_id", principal.UserID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		principal.Access = principal.TestingAccess
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

func readOnlyMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
