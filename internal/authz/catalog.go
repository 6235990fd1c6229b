// Package authz implements permission evaluation and role/permission
// provisioning on top of the workspace context.
package authz

// PermissionSpec declares one catalog entry. The catalog is fixed at deploy
// time; provisioning inserts missing entries and evaluation fails closed on
// keys that are not in it.
type PermissionSpec struct {
	Resource    string
	Action      string
	Description string
}

// Key returns the "resource.action" permission key.
func (s PermissionSpec) Key() string {
	return s.Resource + "." + s.Action
}

// Specs is the full permission catalog.
var Specs = []PermissionSpec{
	{"auth", "password_admin_reset", "Admin-triggered password reset"},
	{"organizations", "read", "Read organization settings"},
	{"organizations", "write", "Update organization settings"},
	{"organizations", "delete", "Delete organization"},
	{"organizations", "manage_members", "Manage organization memberships"},
	{"organizations", "manage_roles", "Manage organization roles"},
	{"organizations", "manage_permissions", "Manage permission grants"},
	{"organizations", "manage_invites", "Manage organization invitations"},
	{"projects", "read", "Read projects"},
	{"projects", "write", "Create and update projects"},
	{"projects", "delete", "Delete projects"},
	{"projects", "manage_members", "Manage project members"},
	{"projects", "manage_roles", "Manage project roles"},
	{"suites", "read", "Read benchmark suites"},
	{"suites", "write", "Create and update benchmark suites"},
	{"suites", "delete", "Delete benchmark suites"},
	{"suites", "share", "Share benchmark suites across the organization"},
	{"agents", "read", "Read agent configs"},
	{"agents", "write", "Create and update agent configs"},
	{"agents", "delete", "Delete agent configs"},
	{"agents", "share", "Share agent configs across the organization"},
	{"runs", "read", "Read runs"},
	{"runs", "execute", "Create and execute runs"},
	{"runs", "cancel", "Cancel runs"},
	{"runs", "delete", "Delete runs"},
	{"runs", "share", "Share runs across the organization"},
	{"results", "read", "Read results"},
	{"results", "retry", "Retry result generation"},
	{"results", "grade", "Create and edit grades"},
	{"traces", "read", "Read trace logs"},
	{"comparisons", "read", "Read comparisons"},
	{"comparisons", "write", "Create comparisons"},
	{"comparisons", "delete", "Delete comparisons"},
	{"exports", "read", "Export data"},
	{"notifications", "read", "Read notifications"},
	{"notifications", "manage", "Mark and delete notifications"},
}

// DefaultOrgRoleKeys maps built-in organization role slugs to the permission
// keys they are (re)provisioned with. org_admin is intentionally absent: it
// bypasses evaluation entirely, so its stored permission set is the full
// catalog purely for display purposes.
var DefaultOrgRoleKeys = map[string][]string{
	"org_user": {
		"organizations.read",
		"projects.read",
	},
}

// DefaultProjectRoleKeys maps built-in project role slugs to their default
// permission keys.
var DefaultProjectRoleKeys = map[string][]string{
	"project_admin": {
		"projects.read",
		"projects.manage_members",
		"projects.manage_roles",
		"suites.read",
		"suites.write",
		"suites.delete",
		"suites.share",
		"agents.read",
		"agents.write",
		"agents.delete",
		"agents.share",
		"runs.read",
		"runs.execute",
		"runs.cancel",
		"runs.delete",
		"runs.share",
		"results.read",
		"results.retry",
		"results.grade",
		"traces.read",
		"comparisons.read",
		"comparisons.write",
		"comparisons.delete",
		"exports.read",
		"notifications.read",
		"notifications.manage",
	},
	"project_user": {
		"projects.read",
		"suites.read",
		"suites.write",
		"agents.read",
		"agents.write",
		"runs.read",
		"runs.execute",
		"runs.cancel",
		"results.read",
		"results.retry",
		"results.grade",
		"traces.read",
		"comparisons.read",
		"comparisons.write",
		"exports.read",
		"notifications.read",
	},
}

// AllKeys returns every key in the catalog.
func AllKeys() []string {
	keys := make([]string, 0, len(Specs))
	for _, spec := range Specs {
		keys = append(keys, spec.Key())
	}
	return keys
}
