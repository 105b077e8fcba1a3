package roles_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-campus/internal/auth"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/roles"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// memStore backs both the roles and the auth repositories so scenarios can
// cross module boundaries.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	roles    map[int64]rbac.Role
	users    map[int64]auth.User
	holders  map[int64]map[int64]bool
	sessions map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   100,
		roles:    make(map[int64]rbac.Role),
		users:    make(map[int64]auth.User),
		holders:  make(map[int64]map[int64]bool),
		sessions: make(map[string]bool),
	}
}

func (m *memStore) addUser(u auth.User, roleIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.holders[u.ID] = make(map[int64]bool)
	for _, id := range roleIDs {
		m.holders[u.ID][id] = true
	}
}

func (m *memStore) addRole(role rbac.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[role.ID] = role
}

func (m *memStore) ListRoles(_ context.Context, _ roles.RoleListFilters) ([]rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]rbac.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetRole(_ context.Context, id int64) (rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return rbac.Role{}, shared.ErrRoleNotFound
	}
	return role, nil
}

func (m *memStore) nameTaken(name string, except int64) bool {
	for id, r := range m.roles {
		if id != except && shared.NormalizeName(r.Name) == shared.NormalizeName(name) {
			return true
		}
	}
	return false
}

func (m *memStore) CreateRole(_ context.Context, in roles.RoleInput) (rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(in.Name, 0) {
		return rbac.Role{}, shared.ErrConflict
	}
	m.nextID++
	role := rbac.Role{ID: m.nextID, Name: in.Name, Description: in.Description, Allowed: in.Allowed, Disallowed: in.Disallowed, CreatedAt: time.Now()}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memStore) UpdateRole(ctx context.Context, id int64, in roles.RoleInput, hook roles.HolderHook) (rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.roles[id]
	if !ok {
		return rbac.Role{}, shared.ErrRoleNotFound
	}
	if m.nameTaken(in.Name, id) {
		return rbac.Role{}, shared.ErrConflict
	}
	next := prev
	next.Name, next.Description, next.Allowed, next.Disallowed = in.Name, in.Description, in.Allowed, in.Disallowed
	m.roles[id] = next
	if err := hook(ctx, m.holdersOf(id)); err != nil {
		m.roles[id] = prev
		return rbac.Role{}, err
	}
	return next, nil
}

func (m *memStore) DeleteRole(ctx context.Context, id int64, hook roles.HolderHook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.roles[id]
	if !ok {
		return shared.ErrRoleNotFound
	}
	holders := m.holdersOf(id)
	delete(m.roles, id)
	for _, uid := range holders {
		delete(m.holders[uid], id)
	}
	if err := hook(ctx, holders); err != nil {
		m.roles[id] = prev
		for _, uid := range holders {
			m.holders[uid][id] = true
		}
		return err
	}
	return nil
}

func (m *memStore) holdersOf(roleID int64) []int64 {
	var ids []int64
	for uid, held := range m.holders {
		if held[roleID] {
			ids = append(ids, uid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memStore) hydrate(u auth.User) auth.User {
	u.Roles = nil
	for id := range m.holders[u.ID] {
		if r, ok := m.roles[id]; ok {
			u.Roles = append(u.Roles, r)
		}
	}
	return u
}

func (m *memStore) FindUserWithRoles(_ context.Context, email string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if shared.NormalizeEmail(u.Email) == email {
			return m.hydrate(u), nil
		}
	}
	return auth.User{}, shared.ErrUserNotFound
}

func (m *memStore) FindUserByID(_ context.Context, id int64) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.User{}, shared.ErrUserNotFound
	}
	return m.hydrate(u), nil
}

func (m *memStore) FindRolesByIDs(context.Context, []int64) ([]rbac.Role, error) {
	return nil, errors.New("not used")
}

func (m *memStore) SetTestingMode(context.Context, int64, bool, rbac.Access) error { return nil }

func (m *memStore) CreateSession(_ context.Context, id string, _ int64, _ time.Time, _ auth.SessionMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = true
	return nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memStore) SessionExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

func (m *memStore) PurgeExpiredSessions(context.Context, time.Time) (int64, error) { return 0, nil }

type eventLog struct {
	mu     sync.Mutex
	events []shared.AccessChangedEvent
	fail   error
}

func (e *eventLog) HandleAccessChanged(_ context.Context, evt shared.AccessChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	e.events = append(e.events, evt)
	return nil
}

type auditLog struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *auditLog) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

func (a *auditLog) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}
