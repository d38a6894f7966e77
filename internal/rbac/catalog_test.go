package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogMembership(t *testing.T) {
	assert.True(t, ValidResource(ResourceProducts))
	assert.True(t, ValidPermission(PermissionWrite))

	assert.False(t, ValidResource("warehouse"))
	assert.False(t, ValidResource(""))
	assert.False(t, ValidPermission("delete"))
}

func TestGrantValid(t *testing.T) {
	assert.True(t, Grant{ResourceStock, PermissionRead}.Valid())
	assert.False(t, Grant{ResourceStock, "approve"}.Valid())
	assert.False(t, Grant{"orders", PermissionRead}.Valid())
}

func TestAllGrantsCoversCrossProduct(t *testing.T) {
	grants := AllGrants()
	assert.Len(t, grants, len(Resources())*len(Permissions()))

	seen := make(map[Grant]struct{}, len(grants))
	for _, g := range grants {
		assert.True(t, g.Valid())
		_, dup := seen[g]
		assert.False(t, dup, "duplicate grant %v", g)
		seen[g] = struct{}{}
	}
}

func TestSeedRoles(t *testing.T) {
	defs := SeedRoles()
	require.Len(t, defs, 4)

	byName := make(map[string]SeedRole, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	require.Contains(t, byName, AdminRoleName)
	assert.Len(t, byName[AdminRoleName].Grants, len(AllGrants()))

	sales, ok := byName["Sales"]
	require.True(t, ok)
	assert.Contains(t, sales.Grants, Grant{ResourceProducts, PermissionRead})
	assert.NotContains(t, sales.Grants, Grant{ResourceProducts, PermissionWrite})

	picker, ok := byName["Picker"]
	require.True(t, ok)
	assert.Contains(t, picker.Grants, Grant{ResourceInventory, PermissionWrite})
	assert.NotContains(t, picker.Grants, Grant{ResourceStock, PermissionWrite})

	for _, d := range defs {
		for _, g := range d.Grants {
			assert.True(t, g.Valid(), "role %s carries invalid grant %v", d.Name, g)
		}
	}
}
