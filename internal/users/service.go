package users

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, nu NewUser) (User, error)
	SetRoles(ctx context.Context, id int64, roleIDs []int64, hook UserHook) error
	SetActive(ctx context.Context, id int64, active bool, hook UserHook) error
	SetPasswordHash(ctx context.Context, id int64, hash string, hook UserHook) error
	DeleteUser(ctx context.Context, id int64, hook UserHook) error
}

// Service handles user business logic. Every mutation that can change what a
// user may do marks the user's sessions invalid before it commits.
type Service struct {
	repo       RepositoryPort
	events     shared.AccessChangeHandler
	audit      shared.AuditRecorder
	logger     *slog.Logger
	bcryptCost int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, events shared.AccessChangeHandler, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, events: events, audit: audit, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	users, total, err := s.repo.ListUsers(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser registers a new account.
func (s *Service) CreateUser(ctx context.Context, actorID int64, in CreateUserInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, NewUser{
		Email:        shared.NormalizeEmail(in.Email),
		Name:         in.Name,
		Type:         in.Type,
		PasswordHash: string(hash),
		RoleIDs:      uniqueIDs(in.RoleIDs),
	})
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, shared.AuditUserCreated, user.ID, map[string]any{"email": user.Email})
	return user, nil
}

// AssignRoles replaces the roles held by a user.
func (s *Service) AssignRoles(ctx context.Context, actorID, id int64, roleIDs []int64) (User, error) {
	roleIDs = uniqueIDs(roleIDs)
	if err := s.repo.SetRoles(ctx, id, roleIDs, s.invalidate(shared.AccessChangeRoleAssignment)); err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, shared.AuditUserRolesSet, id, map[string]any{"role_ids": roleIDs})
	return s.repo.GetUser(ctx, id)
}

// Deactivate disables the account and revokes its sessions.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.SetActive(ctx, id, false, s.invalidate(shared.AccessChangeDeactivated)); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditUserDeactivated, id, nil)
	return nil
}

// Activate re-enables the account.
func (s *Service) Activate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.SetActive(ctx, id, true, noHook); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditUserActivated, id, nil)
	return nil
}

// SetPassword replaces the password and revokes existing sessions.
func (s *Service) SetPassword(ctx context.Context, actorID, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	if err := s.repo.SetPasswordHash(ctx, id, string(hash), s.invalidate(shared.AccessChangeIdentity)); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditUserPasswordSet, id, nil)
	return nil
}

// DeleteUser removes the account and revokes its sessions.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteUser(ctx, id, s.invalidate(shared.AccessChangeUserDeleted)); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditUserDeleted, id, nil)
	return nil
}

func noHook(context.Context, int64) error { return nil }

func (s *Service) invalidate(reason string) UserHook {
	return func(ctx context.Context, id int64) error {
		if s.events == nil {
			return nil
		}
		return s.events.HandleAccessChanged(ctx, shared.AccessChangedEvent{UserIDs: []int64{id}, Reason: reason})
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
