package rbac

// Resource identifies a protected area of the system. The set is closed:
// storage rows referencing anything else are treated as garbage and dropped.
type Resource string

const (
	ResourceDashboard Resource = "dashboard"
	ResourceStock     Resource = "stock"
	ResourceProducts  Resource = "products"
	ResourceLocations Resource = "locations"
	ResourceInventory Resource = "inventory"
	ResourceUsers     Resource = "users"
	ResourceSettings  Resource = "settings"
	ResourceRoles     Resource = "roles"
	ResourceAuditLogs Resource = "audit-logs"
)

// Permission is an action class grantable on a Resource.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

var allResources = []Resource{
	ResourceDashboard,
	ResourceStock,
	ResourceProducts,
	ResourceLocations,
	ResourceInventory,
	ResourceUsers,
	ResourceSettings,
	ResourceRoles,
	ResourceAuditLogs,
}

var allPermissions = []Permission{PermissionRead, PermissionWrite}

var resourceSet = func() map[Resource]struct{} {
	m := make(map[Resource]struct{}, len(allResources))
	for _, r := range allResources {
		m[r] = struct{}{}
	}
	return m
}()

var permissionSet = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(allPermissions))
	for _, p := range allPermissions {
		m[p] = struct{}{}
	}
	return m
}()

// Resources returns the catalog's resources in declaration order.
func Resources() []Resource {
	out := make([]Resource, len(allResources))
	copy(out, allResources)
	return out
}

// Permissions returns the catalog's permission kinds in declaration order.
func Permissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// ValidResource reports whether r is a member of the catalog.
func ValidResource(r Resource) bool {
	_, ok := resourceSet[r]
	return ok
}

// ValidPermission reports whether p is a member of the catalog.
func ValidPermission(p Permission) bool {
	_, ok := permissionSet[p]
	return ok
}

// Grant pairs a resource with a permission kind.
type Grant struct {
	Resource   Resource   `json:"resource"`
	Permission Permission `json:"permission"`
}

// Valid reports whether both halves of the grant belong to the catalog.
func (g Grant) Valid() bool {
	return ValidResource(g.Resource) && ValidPermission(g.Permission)
}

// AllGrants returns the full resource x permission cross product.
func AllGrants() []Grant {
	out := make([]Grant, 0, len(allResources)*len(allPermissions))
	for _, r := range allResources {
		for _, p := range allPermissions {
			out = append(out, Grant{Resource: r, Permission: p})
		}
	}
	return out
}
