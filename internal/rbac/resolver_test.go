package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIsCommutativeAndCanonical(t *testing.T) {
	r1 := Role{Name: "faculty", Allowed: []string{"grades:view", "handouts"}, Disallowed: []string{"grades:manage"}}
	r2 := Role{Name: "hod", Allowed: []string{"grades", "handouts"}, Disallowed: []string{"phd"}}
	r3 := Role{Name: "empty"}

	a := Resolve(r1, r2, r3)
	b := Resolve(r3, r2, r1)
	require.True(t, a.Equal(b))
	require.Equal(t, []string{"grades", "grades:view", "handouts"}, a.Allowed)
	require.Equal(t, []string{"grades:manage", "phd"}, a.Disallowed)
}

func TestResolveKeepsCapabilityInBothSets(t *testing.T) {
	access := Resolve(
		Role{Allowed: []string{"grades:view"}},
		Role{Disallowed: []string{"grades:view"}},
	)
	require.Equal(t, []string{"grades:view"}, access.Allowed)
	require.Equal(t, []string{"grades:view"}, access.Disallowed)
	require.False(t, Decide(access, "grades:view"))
}

func TestResolveUserInactiveIsEmpty(t *testing.T) {
	roles := []Role{{Allowed: []string{"admin"}}}
	require.True(t, ResolveUser(false, roles).IsEmpty())
	require.False(t, Decide(ResolveUser(false, roles), "grades:view"))
	require.True(t, Decide(ResolveUser(true, roles), "grades:view"))
}

func TestDecideEmptyAccessDeniesEverything(t *testing.T) {
	for _, c := range []string{"admin", "grades", "grades:view", "x:y:z"} {
		assert.False(t, Decide(Access{}, c), c)
	}
}

func TestDecideMostSpecificWins(t *testing.T) {
	access := Access{Allowed: []string{"grades:view:own"}, Disallowed: []string{"grades"}}
	assert.True(t, Decide(access, "grades:view:own"))
	assert.False(t, Decide(access, "grades:view"))
	assert.False(t, Decide(access, "grades:upload"))

	access = Access{Allowed: []string{"phd"}, Disallowed: []string{"phd:drc"}}
	assert.True(t, Decide(access, "phd:view"))
	assert.False(t, Decide(access, "phd:drc:qe"))
}

func TestDecideTieDenies(t *testing.T) {
	access := Access{Allowed: []string{"grades:view"}, Disallowed: []string{"grades/view"}}
	assert.False(t, Decide(access, "grades:view"))
	assert.False(t, Decide(access, "grades/view"))
}

func TestDecideDelimitersAreInterchangeable(t *testing.T) {
	access := Access{Allowed: []string{"phd"}, Disallowed: []string{"phd:delete"}}
	assert.False(t, Decide(access, "phd:delete"))
	assert.False(t, Decide(access, "phd/delete"))
	assert.True(t, Decide(access, "phd/view"))

	access = Access{Allowed: []string{"phd"}, Disallowed: []string{"phd/drc"}}
	assert.False(t, Decide(access, "phd:drc:qe"))
}

func TestResolveMergesDelimiterSpellings(t *testing.T) {
	access := Resolve(
		Role{Allowed: []string{"phd/drc"}, Disallowed: []string{"phd/drc/qe"}},
		Role{Allowed: []string{"phd:drc"}},
	)
	require.Equal(t, []string{"phd:drc"}, access.Allowed)
	require.Equal(t, []string{"phd:drc:qe"}, access.Disallowed)
}

func TestDecideRootWildcard(t *testing.T) {
	access := Access{Allowed: []string{"admin"}}
	for _, c := range []string{"grades:view", "phd:drc:thesis", "admin", "admin:testing-mode"} {
		assert.True(t, Decide(access, c), c)
	}

	access = Access{Allowed: []string{"admin"}, Disallowed: []string{"grades:upload"}}
	assert.False(t, Decide(access, "grades:upload"))
	assert.True(t, Decide(access, "grades:view"))
}

func TestDecideAdminRequiresExplicitGrant(t *testing.T) {
	access := Access{Allowed: []string{"admin:testing-mode", "users", "roles"}}
	assert.False(t, Decide(access, "admin"))
	assert.True(t, Decide(access, "admin:testing-mode"))
}

func TestDecideRejectsEmptyRequirement(t *testing.T) {
	assert.False(t, Decide(Access{Allowed: []string{"admin"}}, ""))
}

func TestDecideAllAndAny(t *testing.T) {
	access := Access{Allowed: []string{"users:edit"}}

	assert.False(t, DecideAll(access, "users:edit", "roles:assign"))
	assert.True(t, DecideAny(access, "users:edit", "roles:assign"))
	assert.False(t, DecideAny(access, "roles:assign", "grades:view"))

	assert.True(t, DecideAll(access))
	assert.True(t, DecideAny(access))
}
