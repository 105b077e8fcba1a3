package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/observability"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

type denyAllVerifier struct{}

func (denyAllVerifier) VerifyAccess(string) (rbac.Principal, error) {
	return rbac.Principal{}, shared.ErrUnauthenticated
}

func newTestRouter() http.Handler {
	metrics := observability.NewMetrics()
	mw := rbac.Middleware{Verifier: denyAllVerifier{}, Catalog: rbac.DefaultCatalog(), Metrics: metrics}
	return NewRouter(RouterParams{
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:             &Config{AppEnv: "development", AppRateLimit: 1000},
		PermissionsHandler: rbac.NewPermissionsHandler(rbac.DefaultCatalog(), mw),
		Metrics:            metrics,
	})
}

func TestRouterHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestRouterProtectedRouteRequiresToken(t *testing.T) {
	h := newTestRouter()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/permissions", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `odyssey_authz_decisions_total{outcome="unauthenticated"} 1`)
}

func TestRouterUnknownRoute(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
