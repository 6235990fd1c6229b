package models

// Effect is the outcome a role assignment or user grant contributes to a
// permission decision. A single deny wins over any number of allows.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Visibility controls whether a tenant-scoped record is visible only inside
// its owning project or to every project in the organization.
type Visibility string

const (
	VisibilityProject      Visibility = "project"
	VisibilityOrganization Visibility = "organization"
)

// Built-in role slugs. These exist exactly once per organization, are seeded
// by provisioning, and are never deleted.
const (
	RoleSlugOrgAdmin     = "org_admin"
	RoleSlugOrgUser      = "org_user"
	RoleSlugProjectAdmin = "project_admin"
	RoleSlugProjectUser  = "project_user"
)
