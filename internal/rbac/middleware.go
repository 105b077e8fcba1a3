package rbac

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Decision outcomes reported to the DecisionRecorder.
const (
	OutcomeAllow           = "allow"
	OutcomeDeny            = "deny"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeTestingReadOnly = "testing_read_only"
)

// Verifier validates a raw access credential and decodes its principal.
// Expired credentials must wrap shared.ErrTokenExpired.
type Verifier interface {
	VerifyAccess(raw string) (Principal, error)
}

// DecisionRecorder receives authorization outcomes.
type DecisionRecorder interface {
	ObserveDecision(outcome string)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Verifier     Verifier
	Catalog      *Catalog
	Logger       *slog.Logger
	Metrics      DecisionRecorder
	AccessCookie string
}

type combinator func(Access, ...string) bool

// CheckAccess authenticates the request and requires every listed capability.
// With no capabilities only authentication is enforced.
func (m Middleware) CheckAccess(capabilities ...string) func(http.Handler) http.Handler {
	return m.gate(DecideAll, capabilities)
}

// RequireAll ensures the current principal holds all required capabilities.
func (m Middleware) RequireAll(capabilities ...string) func(http.Handler) http.Handler {
	return m.gate(DecideAll, capabilities)
}

// RequireAny ensures the current principal holds at least one of the
// required capabilities.
func (m Middleware) RequireAny(capabilities ...string) func(http.Handler) http.Handler {
	return m.gate(DecideAny, capabilities)
}

func (m Middleware) gate(decide combinator, capabilities []string) func(http.Handler) http.Handler {
	required := m.mustKnow(capabilities)
	return func(next http.Handler) http.Handler {
		enforce := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				m.observe(OutcomeUnauthenticated)
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if !decide(principal.Access, required...) {
				m.observe(OutcomeDeny)
				m.logger().Debug("rbac deny",
					slog.Int64("user_id", principal.UserID),
					slog.String("path", r.URL.Path),
					slog.Any("required", required))
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			m.observe(OutcomeAllow)
			next.ServeHTTP(w, r)
		})
		return m.Authenticate(m.TestingOverlay(enforce))
	}
}

// Authenticate verifies the request credential and attaches the principal to
// the request context. It does not apply the testing overlay.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		raw := m.credential(r)
		if raw == "" || m.Verifier == nil {
			m.observe(OutcomeUnauthenticated)
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		principal, err := m.Verifier.VerifyAccess(raw)
		if err != nil {
			m.observe(OutcomeUnauthenticated)
			if errors.Is(err, shared.ErrTokenExpired) {
				httpx.RespondError(w, shared.ErrTokenExpired)
				return
			}
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

func (m Middleware) credential(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if m.AccessCookie == "" {
		return ""
	}
	cookie, err := r.Cookie(m.AccessCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (m Middleware) mustKnow(capabilities []string) []string {
	required := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		if m.Catalog != nil && !m.Catalog.Known(c) {
			panic(fmt.Sprintf("rbac: route requires undeclared capability %q", c))
		}
		if m.Catalog == nil {
			if err := ValidateCapability(c); err != nil {
				panic(fmt.Sprintf("rbac: %v", err))
			}
		}
		required = append(required, Canonical(c))
	}
	return required
}

func (m Middleware) observe(outcome string) {
	if m.Metrics != nil {
		m.Metrics.ObserveDecision(outcome)
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
