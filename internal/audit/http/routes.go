package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes mendaftarkan endpoint audit timeline dan ekspor CSV.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "RATE_LIMITED", "")
		}),
	)
	r.With(h.rbac.CheckAccess(shared.PermAuditView)).Get("/", h.handleTimeline)
	r.Group(func(gr chi.Router) {
		gr.Use(h.rbac.CheckAccess(shared.PermAuditView, shared.PermAuditExport))
		gr.Use(limiter)
		gr.Get("/export.csv", h.handleExport)
	})
}

// Kunci rate limit per pengguna; limiter dipasang setelah otentikasi.
func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := rbac.PrincipalFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
