package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	cookie    CookieConfig
	rateLimit int
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. rateLimit caps login and refresh
// attempts per client IP per minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, cookie CookieConfig, rateLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cookie.Name == "" {
		cookie.Name = "odyssey_refresh"
	}
	if cookie.Path == "" {
		cookie.Path = "/auth"
	}
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbac,
		cookie:    cookie,
		rateLimit: rateLimit,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.rateLimit > 0 {
			r.Use(httprate.LimitByIP(h.rateLimit, time.Minute))
		}
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
	})
	r.Post("/logout", h.handleLogout)
	r.With(h.rbac.CheckAccess()).Get("/me", h.handleMe)
	r.With(h.rbac.CheckAccess(shared.PermTestingMode)).Post("/testing-mode", h.handleEnterTestingMode)
	r.With(h.rbac.Authenticate).Post("/testing-mode/exit", h.handleExitTestingMode)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userView struct {
	ID          int64       `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Access      rbac.Access `json:"access"`
	TestingMode bool        `json:"testing_mode"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        userView  `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password, SessionMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()})
	if err != nil {
		h.respond(w, "login", err)
		return
	}
	h.setRefreshCookie(w, result.Tokens.RefreshToken, result.Tokens.RefreshExpiresAt)
	httpx.JSON(w, http.StatusOK, loginResponse{
		AccessToken: result.Tokens.AccessToken,
		ExpiresAt:   result.Tokens.AccessExpiresAt,
		User:        viewOf(result.User),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil || cookie.Value == "" {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	token, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, shared.ErrSessionRevoked) {
			h.clearRefreshCookie(w)
		}
		h.respond(w, "refresh", err)
		return
	}
	httpx.JSON(w, http.StatusOK, token)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookie.Name); err == nil {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	user, err := h.service.Me(r.Context(), principal)
	if err != nil {
		h.respond(w, "me", err)
		return
	}
	view := viewOf(user)
	view.Access = principal.Access
	view.TestingMode = principal.TestingMode
	httpx.JSON(w, http.StatusOK, view)
}

type testingModeRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required,min=1,dive,gt=0"`
}

func (h *Handler) handleEnterTestingMode(w http.ResponseWriter, r *http.Request) {
	var req testingModeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	token, err := h.service.EnterTestingMode(r.Context(), principal, req.RoleIDs)
	if err != nil {
		h.respond(w, "enter testing mode", err)
		return
	}
	httpx.JSON(w, http.StatusOK, token)
}

func (h *Handler) handleExitTestingMode(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	token, err := h.service.ExitTestingMode(r.Context(), principal)
	if err != nil {
		h.respond(w, "exit testing mode", err)
		return
	}
	httpx.JSON(w, http.StatusOK, token)
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     h.cookie.Path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) validate(v any) error {
	return shared.ValidateStruct(h.validator, v)
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	httpx.RespondError(w, err)
	if shared.IsDomainError(err) {
		return
	}
	h.logger.Error("auth "+op, slog.Any("error", err))
}

func viewOf(u User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Type:        u.Type,
		Access:      u.Access(),
		TestingMode: u.TestingMode,
	}
}
