package audithttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/audit"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	err         error
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(_ context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, s.err
}

func (s *stubTimelineService) Export(_ context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, s.err
}

type stubVerifier map[string]rbac.Principal

func (s stubVerifier) VerifyAccess(raw string) (rbac.Principal, error) {
	p, ok := s[raw]
	if !ok {
		return rbac.Principal{}, shared.ErrUnauthenticated
	}
	return p, nil
}

func newAuditRouter(service *stubTimelineService) http.Handler {
	tokens := stubVerifier{
		"auditor":  {UserID: 7, Access: rbac.Access{Allowed: []string{"audit"}}},
		"viewer":   {UserID: 8, Access: rbac.Access{Allowed: []string{"audit:view"}}},
		"outsider": {UserID: 9, Access: rbac.Access{Allowed: []string{"grades"}}},
	}
	handler := NewHandler(nil, service, rbac.Middleware{Verifier: tokens, Catalog: rbac.DefaultCatalog()})
	handler.now = func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit", handler.MountRoutes)
	return r
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestTimelineRequiresPermission(t *testing.T) {
	h := newAuditRouter(&stubTimelineService{})
	require.Equal(t, http.StatusUnauthorized, get(h, "/audit", "").Code)
	require.Equal(t, http.StatusForbidden, get(h, "/audit", "outsider").Code)
}

func TestTimelineReturnsRows(t *testing.T) {
	rows := []audit.TimelineRow{{At: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), ActorID: 1, Action: "role.updated", Entity: "role", EntityID: "4"}}
	service := &stubTimelineService{result: audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	h := newAuditRouter(service)

	rr := get(h, "/audit?from=2026-03-01&to=2026-03-15&actor_id=1&entity=role", "viewer")
	require.Equal(t, http.StatusOK, rr.Code)
	var body audit.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
	require.Equal(t, "role.updated", body.Rows[0].Action)
	require.Equal(t, "2026-03-01", service.lastFilters.From.Format(dateLayout))
	require.Equal(t, int64(1), service.lastFilters.ActorID)
	require.Equal(t, "role", service.lastFilters.Entity)
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	service := &stubTimelineService{}
	h := newAuditRouter(service)
	require.Equal(t, http.StatusOK, get(h, "/audit", "viewer").Code)
	require.Equal(t, "2026-03-08", service.lastFilters.From.Format(dateLayout))
	require.Equal(t, "2026-03-15", service.lastFilters.To.Format(dateLayout))
	require.Equal(t, 1, service.lastFilters.Page)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	h := newAuditRouter(&stubTimelineService{})
	for _, path := range []string{
		"/audit?from=2026-03-20&to=2026-03-15",
		"/audit?from=2025-01-01&to=2026-03-15",
		"/audit?to=yesterday",
		"/audit?page=0",
		"/audit?actor_id=abc",
	} {
		require.Equal(t, http.StatusBadRequest, get(h, path, "viewer").Code, path)
	}
}

func TestTimelineServiceFailure(t *testing.T) {
	h := newAuditRouter(&stubTimelineService{err: errors.New("db down")})
	rr := get(h, "/audit", "viewer")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "db down")
}

func TestExportCSVRequiresExportCapability(t *testing.T) {
	service := &stubTimelineService{exportRows: []audit.TimelineRow{{ActorID: 1, Action: "role.created", Entity: "role", EntityID: "2"}}}
	h := newAuditRouter(service)

	require.Equal(t, http.StatusForbidden, get(h, "/audit/export.csv", "viewer").Code)

	rr := get(h, "/audit/export.csv?from=2026-03-01&to=2026-03-05", "auditor")
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv"))
	require.Contains(t, rr.Body.String(), "role.created")
}

func TestExportCSVIsRateLimitedPerUser(t *testing.T) {
	h := newAuditRouter(&stubTimelineService{})
	for i := 0; i < rateLimit; i++ {
		require.Equal(t, http.StatusOK, get(h, "/audit/export.csv", "auditor").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, get(h, "/audit/export.csv", "auditor").Code)
}
