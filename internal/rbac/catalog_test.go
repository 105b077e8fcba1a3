package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

func TestCatalogKnownIncludesAncestors(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("academic", "phd:drc:qe", "grades:view"))

	require.True(t, c.Known("phd:drc:qe"))
	require.True(t, c.Known("phd:drc"))
	require.True(t, c.Known("phd"))
	require.True(t, c.Known("grades"))
	require.False(t, c.Known("grades:upload"))
	require.False(t, c.Known("Grades"))
	require.True(t, c.Known("phd/drc"))
	require.True(t, c.Known("grades/view"))
}

func TestCatalogStoresCanonicalNames(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("academic", "phd/drc/qe"))
	require.ErrorIs(t, c.Register("core", "phd:drc:qe"), shared.ErrConflict)
	require.Equal(t, "phd:drc:qe", c.ListPermissions()[0].Name)
}

func TestCatalogValidateListsUnknown(t *testing.T) {
	c := NewCatalog()
	c.MustRegister("core", "users:view")

	require.NoError(t, c.Validate([]string{"users", "users:view"}))
	err := c.Validate([]string{"users:view", "billing:view", "x"})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "billing:view")
	require.Contains(t, err.Error(), "x")
}

func TestCatalogRegisterConflicts(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("core", "users:view"))
	require.NoError(t, c.Register("core", "users:view"))
	require.ErrorIs(t, c.Register("academic", "users:view"), shared.ErrConflict)
	require.ErrorIs(t, c.Register("core", "bad name"), shared.ErrValidation)
}

func TestDefaultCatalogListsSorted(t *testing.T) {
	perms := DefaultCatalog().ListPermissions()
	require.NotEmpty(t, perms)
	for i := 1; i < len(perms); i++ {
		require.Less(t, perms[i-1].Name, perms[i].Name)
	}
	require.True(t, DefaultCatalog().Known(shared.PermTestingMode))
}
