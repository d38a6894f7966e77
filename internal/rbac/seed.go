package rbac

// AdminRoleName is the built-in administrator role. Lookups by this name are
// case-insensitive so a manually renamed "admin" still resolves.
const AdminRoleName = "Admin"

// SeedRole is the canonical definition of a built-in role.
type SeedRole struct {
	Name        string
	Description string
	Grants      []Grant
}

// SeedRoles returns the built-in roles created at first service start.
// Existing roles are never overwritten by seeding, so edits here only affect
// fresh databases.
func SeedRoles() []SeedRole {
	return []SeedRole{
		{
			Name:        AdminRoleName,
			Description: "Full system access",
			Grants:      AllGrants(),
		},
		{
			Name:        "Warehouse Manager",
			Description: "Manage warehouse operations",
			Grants: []Grant{
				{ResourceDashboard, PermissionRead},
				{ResourceStock, PermissionRead},
				{ResourceStock, PermissionWrite},
				{ResourceProducts, PermissionRead},
				{ResourceProducts, PermissionWrite},
				{ResourceLocations, PermissionRead},
				{ResourceLocations, PermissionWrite},
				{ResourceInventory, PermissionRead},
				{ResourceInventory, PermissionWrite},
				{ResourceSettings, PermissionRead},
				{ResourceSettings, PermissionWrite},
			},
		},
		{
			Name:        "Picker",
			Description: "Pick and manage inventory",
			Grants: []Grant{
				{ResourceDashboard, PermissionRead},
				{ResourceStock, PermissionRead},
				{ResourceProducts, PermissionRead},
				{ResourceLocations, PermissionRead},
				{ResourceInventory, PermissionRead},
				{ResourceInventory, PermissionWrite},
				{ResourceSettings, PermissionRead},
				{ResourceSettings, PermissionWrite},
			},
		},
		{
			Name:        "Sales",
			Description: "View stock and products",
			Grants: []Grant{
				{ResourceDashboard, PermissionRead},
				{ResourceStock, PermissionRead},
				{ResourceProducts, PermissionRead},
				{ResourceInventory, PermissionRead},
				{ResourceSettings, PermissionRead},
				{ResourceSettings, PermissionWrite},
			},
		},
	}
}
