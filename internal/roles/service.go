package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context, filters RoleListFilters) ([]rbac.Role, error)
	GetRole(ctx context.Context, id int64) (rbac.Role, error)
	CreateRole(ctx context.Context, in RoleInput) (rbac.Role, error)
	UpdateRole(ctx context.Context, id int64, in RoleInput, hook HolderHook) (rbac.Role, error)
	DeleteRole(ctx context.Context, id int64, hook HolderHook) error
}

// Service handles role business logic.
type Service struct {
	repo    RepositoryPort
	catalog *rbac.Catalog
	events  shared.AccessChangeHandler
	audit   shared.AuditRecorder
	logger  *slog.Logger
}

// NewService builds Service instance. events receives the holders of every
// edited or deleted role.
func NewService(repo RepositoryPort, catalog *rbac.Catalog, events shared.AccessChangeHandler, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: catalog, events: events, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context, filters RoleListFilters) ([]rbac.Role, error) {
	return s.repo.ListRoles(ctx, filters)
}

// GetRole returns a single role.
func (s *Service) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole validates and stores a new role. New roles have no holders so
// nobody is invalidated.
func (s *Service) CreateRole(ctx context.Context, actorID int64, in RoleInput) (rbac.Role, error) {
	in, err := s.validate(in)
	if err != nil {
		return rbac.Role{}, err
	}
	role, err := s.repo.CreateRole(ctx, in)
	if err != nil {
		return rbac.Role{}, err
	}
	s.record(ctx, actorID, shared.AuditRoleCreated, role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// UpdateRole rewrites a role and invalidates the sessions of its holders.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, in RoleInput) (rbac.Role, error) {
	in, err := s.validate(in)
	if err != nil {
		return rbac.Role{}, err
	}
	role, err := s.repo.UpdateRole(ctx, id, in, s.invalidate(shared.AccessChangeRoleEdited))
	if err != nil {
		return rbac.Role{}, err
	}
	s.record(ctx, actorID, shared.AuditRoleUpdated, role.ID, map[string]any{
		"allowed":    role.Allowed,
		"disallowed": role.Disallowed,
	})
	return role, nil
}

// DeleteRole removes a role, detaching it from holders and invalidating
// their sessions.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	var holders int
	hook := s.invalidate(shared.AccessChangeRoleDeleted)
	err := s.repo.DeleteRole(ctx, id, func(ctx context.Context, ids []int64) error {
		holders = len(ids)
		return hook(ctx, ids)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditRoleDeleted, id, map[string]any{"holders": holders})
	return nil
}

func (s *Service) validate(in RoleInput) (RoleInput, error) {
	in = in.normalized()
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	for _, set := range [][]string{in.Allowed, in.Disallowed} {
		for _, c := range set {
			if err := rbac.ValidateCapability(c); err != nil {
				return in, err
			}
		}
		if s.catalog != nil {
			if err := s.catalog.Validate(set); err != nil {
				return in, err
			}
		}
	}
	return in, nil
}

func (s *Service) invalidate(reason string) HolderHook {
	return func(ctx context.Context, ids []int64) error {
		if s.events == nil || len(ids) == 0 {
			return nil
		}
		return s.events.HandleAccessChanged(ctx, shared.AccessChangedEvent{UserIDs: ids, Reason: reason})
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, roleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
