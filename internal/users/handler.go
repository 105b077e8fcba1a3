package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.CheckAccess(shared.PermUsersView))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.CheckAccess(shared.PermUsersEdit))
		r.Post("/", h.createUser)
		r.Post("/{id}/deactivate", h.deactivate)
		r.Post("/{id}/activate", h.activate)
		r.Put("/{id}/password", h.setPassword)
	})
	r.With(h.rbac.CheckAccess(shared.PermUsersEdit, shared.PermRolesAssign)).Put("/{id}/roles", h.assignRoles)
	r.With(h.rbac.CheckAccess(shared.PermUsersDelete)).Delete("/{id}", h.deleteUser)
}

type listResponse struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r.URL.Query())
	users, pagination, err := h.service.ListUsers(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Users: users, Pagination: pagination})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateUserInput
	if !h.decode(w, r, &in) {
		return
	}
	user, err := h.service.CreateUser(r.Context(), actorID(r), in)
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var in AssignRolesInput
	if !h.decode(w, r, &in) {
		return
	}
	user, err := h.service.AssignRoles(r.Context(), actorID(r), id, in.RoleIDs)
	if err != nil {
		h.fail(w, "assign roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), actorID(r), id); err != nil {
		h.fail(w, "deactivate user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Activate(r.Context(), actorID(r), id); err != nil {
		h.fail(w, "activate user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var in PasswordInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.SetPassword(r.Context(), actorID(r), id, in.Password); err != nil {
		h.fail(w, "set password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), actorID(r), id); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := shared.ValidateStruct(h.validator, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid user id", shared.ErrValidation))
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !shared.IsDomainError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func actorID(r *http.Request) int64 {
	p, _ := rbac.PrincipalFromContext(r.Context())
	return p.UserID
}
