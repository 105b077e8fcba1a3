package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// PermissionsHandler manages permission listing.
type PermissionsHandler struct {
	catalog *Catalog
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(catalog *Catalog, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{catalog: catalog, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.CheckAccess(shared.PermPermissionsView)).Get("/", h.listPermissions)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": h.catalog.ListPermissions()})
}
