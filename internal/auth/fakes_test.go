package auth

import (
	"context"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

type memRepo struct {
	mu       sync.Mutex
	users    map[int64]User
	roles    map[int64]rbac.Role
	holders  map[int64][]int64
	sessions map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    make(map[int64]User),
		roles:    make(map[int64]rbac.Role),
		holders:  make(map[int64][]int64),
		sessions: make(map[string]int64),
	}
}

func (m *memRepo) putRole(role rbac.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[role.ID] = role
}

func (m *memRepo) putUser(user User, roleIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	m.holders[user.ID] = roleIDs
}

func (m *memRepo) setActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.IsActive = active
	m.users[id] = u
}

func (m *memRepo) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memRepo) hydrate(u User) User {
	u.Roles = nil
	for _, id := range m.holders[u.ID] {
		if role, ok := m.roles[id]; ok {
			u.Roles = append(u.Roles, role)
		}
	}
	return u
}

func (m *memRepo) FindUserWithRoles(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if shared.NormalizeEmail(u.Email) == email {
			return m.hydrate(u), nil
		}
	}
	return User{}, shared.ErrUserNotFound
}

func (m *memRepo) FindUserByID(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrUserNotFound
	}
	return m.hydrate(u), nil
}

func (m *memRepo) FindRolesByIDs(_ context.Context, ids []int64) ([]rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := make([]rbac.Role, 0, len(ids))
	for _, id := range ids {
		role, ok := m.roles[id]
		if !ok {
			return nil, shared.ErrRoleNotFound
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (m *memRepo) SetTestingMode(_ context.Context, userID int64, enabled bool, access rbac.Access) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return shared.ErrUserNotFound
	}
	u.TestingMode = enabled
	u.TestingAccess = access
	m.users[userID] = u
	return nil
}

func (m *memRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _ SessionMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = userID
	return nil
}

func (m *memRepo) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memRepo) SessionExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok, nil
}

func (m *memRepo) PurgeExpiredSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type refreshCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *refreshCounter) ObserveRefresh(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[outcome]++
}

func (c *refreshCounter) get(outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[outcome]
}
