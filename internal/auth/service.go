package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

const reloadTimeout = 5 * time.Second

// Refresh outcomes reported to the RefreshRecorder.
const (
	RefreshOK      = "ok"
	RefreshRevoked = "revoked"
	RefreshInvalid = "invalid"
	RefreshError   = "error"
)

// RefreshRecorder receives refresh outcomes.
type RefreshRecorder interface {
	ObserveRefresh(outcome string)
}

// ServiceDeps groups the collaborators of Service.
type ServiceDeps struct {
	Repo          Repository
	Tokens        *TokenIssuer
	Invalidations *InvalidationStore
	Audit         shared.AuditRecorder
	Metrics       RefreshRecorder
	Logger        *slog.Logger
}

// Service wraps authentication business rules.
type Service struct {
	repo          Repository
	tokens        *TokenIssuer
	invalidations *InvalidationStore
	audit         shared.AuditRecorder
	metrics       RefreshRecorder
	logger        *slog.Logger
	reloads       singleflight.Group
	now           func() time.Time
}

// NewService constructs a new Service.
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:          deps.Repo,
		tokens:        deps.Tokens,
		invalidations: deps.Invalidations,
		audit:         deps.Audit,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Login validates email/password credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string, meta SessionMeta) (LoginResult, error) {
	user, err := s.repo.FindUserWithRoles(ctx, shared.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return LoginResult{}, shared.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !user.IsActive {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	pair, err := s.tokens.Issue(s.now(), user.Subject())
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.repo.CreateSession(ctx, pair.SessionID, user.ID, pair.RefreshExpiresAt, meta); err != nil {
		s.logger.Warn("register session", slog.Any("error", err))
		return LoginResult{}, err
	}
	return LoginResult{User: user, Tokens: pair}, nil
}

// Refresh mints a new access token from a refresh token, re-resolving the
// user's access. Any doubt about the session's validity revokes it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AccessToken, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.observe(RefreshInvalid)
		return AccessToken{}, err
	}
	userID, _ := claims.UserID()

	revoked, err := s.invalidations.IsInvalidatedSince(ctx, shared.UserKey(userID), claims.IssuedAt())
	if err != nil {
		s.observe(RefreshError)
		s.logger.Warn("invalidation lookup failed, refusing refresh",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return AccessToken{}, fmt.Errorf("%w: invalidation state unavailable", shared.ErrSessionRevoked)
	}
	if revoked {
		s.observe(RefreshRevoked)
		return AccessToken{}, shared.ErrSessionRevoked
	}

	live, err := s.repo.SessionExists(ctx, claims.ID)
	if err != nil {
		s.observe(RefreshError)
		s.logger.Warn("session lookup failed, refusing refresh",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return AccessToken{}, fmt.Errorf("%w: session state unavailable", shared.ErrSessionRevoked)
	}
	if !live {
		s.observe(RefreshRevoked)
		return AccessToken{}, fmt.Errorf("%w: session ended", shared.ErrSessionRevoked)
	}

	user, err := s.reloadUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			s.observe(RefreshRevoked)
			return AccessToken{}, fmt.Errorf("%w: user no longer exists", shared.ErrSessionRevoked)
		}
		s.observe(RefreshError)
		return AccessToken{}, err
	}
	if !user.IsActive {
		s.observe(RefreshRevoked)
		return AccessToken{}, fmt.Errorf("%w: user deactivated", shared.ErrSessionRevoked)
	}

	token, err := s.issueAccess(user)
	if err != nil {
		s.observe(RefreshError)
		return AccessToken{}, err
	}
	s.observe(RefreshOK)
	return token, nil
}

// Logout deletes the login session bound to the refresh token. Invalid or
// expired tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	return s.repo.DeleteSession(ctx, claims.ID)
}

// Me reloads the principal's user record.
func (s *Service) Me(ctx context.Context, principal rbac.Principal) (User, error) {
	return s.reloadUser(ctx, principal.UserID)
}

// EnterTestingMode resolves roleIDs into a temporary access for the principal
// and returns an access token carrying it. The overlay may only allow what
// the principal's own roles already grant.
func (s *Service) EnterTestingMode(ctx context.Context, principal rbac.Principal, roleIDs []int64) (AccessToken, error) {
	if len(roleIDs) == 0 {
		return AccessToken{}, fmt.Errorf("%w: role_ids must not be empty", shared.ErrValidation)
	}
	roles, err := s.repo.FindRolesByIDs(ctx, roleIDs)
	if err != nil {
		return AccessToken{}, err
	}
	user, err := s.repo.FindUserByID(ctx, principal.UserID)
	if err != nil {
		return AccessToken{}, err
	}
	access := rbac.Resolve(roles...)
	if beyond := ungranted(user.Access(), access.Allowed); len(beyond) > 0 {
		return AccessToken{}, fmt.Errorf("%w: testing roles allow %s beyond your own access",
			shared.ErrForbidden, strings.Join(beyond, ", "))
	}
	if err := s.repo.SetTestingMode(ctx, principal.UserID, true, access); err != nil {
		return AccessToken{}, err
	}
	s.record(ctx, principal.UserID, shared.AuditTestingModeEnter, map[string]any{"role_ids": roleIDs})
	return s.reissue(ctx, principal.UserID)
}

// ExitTestingMode clears the testing flag and returns an access token with
// the user's real access.
func (s *Service) ExitTestingMode(ctx context.Context, principal rbac.Principal) (AccessToken, error) {
	if err := s.repo.SetTestingMode(ctx, principal.UserID, false, rbac.Access{}); err != nil {
		return AccessToken{}, err
	}
	s.record(ctx, principal.UserID, shared.AuditTestingModeExit, nil)
	return s.reissue(ctx, principal.UserID)
}

// PurgeExpiredSessions removes expired login session records.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredSessions(ctx, s.now())
}

func (s *Service) reissue(ctx context.Context, userID int64) (AccessToken, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return AccessToken{}, err
	}
	if !user.IsActive {
		return AccessToken{}, shared.ErrUnauthenticated
	}
	return s.issueAccess(user)
}

func (s *Service) issueAccess(user User) (AccessToken, error) {
	token, exp, err := s.tokens.IssueAccess(s.now(), user.Subject())
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: token, ExpiresAt: exp}, nil
}

// ungranted lists the capabilities that access does not grant.
func ungranted(access rbac.Access, capabilities []string) []string {
	var out []string
	for _, c := range capabilities {
		if !rbac.Decide(access, c) {
			out = append(out, c)
		}
	}
	return out
}

// reloadUser coalesces concurrent lookups of one user. The shared lookup is
// detached from any single caller's cancellation and bounded by reloadTimeout.
func (s *Service) reloadUser(ctx context.Context, userID int64) (User, error) {
	v, err, _ := s.reloads.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reloadTimeout)
		defer cancel()
		return s.repo.FindUserByID(lookupCtx, userID)
	})
	if err != nil {
		return User{}, err
	}
	return v.(User), nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(actorID, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveRefresh(outcome)
	}
}
