package workspace

import (
	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// OrganizationScoped is implemented by every tenant-owned entity that carries
// an organization_id column.
type OrganizationScoped interface {
	SetOrganizationID(id uint)
}

// ProjectScoped is implemented by entities that additionally carry a
// project_id column.
type ProjectScoped interface {
	SetProjectID(id uint)
}

// VisibilityScoped is implemented by entities whose visibility_scope column
// can widen them from their owning project to the whole organization.
type VisibilityScoped interface {
	SetVisibilityScope(v models.Visibility)
}

// CreatorStamped is implemented by entities that record the creating user.
type CreatorStamped interface {
	SetCreatedByUserID(id uint)
}

// ApplyTenancyFilter scopes a list/read query to the resolved workspace.
// model is a pointer to the entity type being queried; the clauses added
// depend on which capability interfaces it implements. Organization-visible
// records pass the project filter regardless of their owning project.
func ApplyTenancyFilter(tx *gorm.DB, model any, ws *Context) *gorm.DB {
	if _, ok := model.(OrganizationScoped); ok {
		tx = tx.Where("organization_id = ?", ws.OrganizationID)
	}
	if _, ok := model.(ProjectScoped); ok && ws.ProjectID != nil {
		if _, ok := model.(VisibilityScoped); ok {
			tx = tx.Where("project_id = ? OR visibility_scope = ?", *ws.ProjectID, models.VisibilityOrganization)
		} else {
			tx = tx.Where("project_id = ?", *ws.ProjectID)
		}
	}
	return tx
}

// StampTenancyFields populates tenancy columns on a record about to be
// created, from the resolved workspace.
func StampTenancyFields(record any, ws *Context) {
	if r, ok := record.(OrganizationScoped); ok {
		r.SetOrganizationID(ws.OrganizationID)
	}
	if r, ok := record.(ProjectScoped); ok && ws.ProjectID != nil {
		r.SetProjectID(*ws.ProjectID)
	}
	if r, ok := record.(CreatorStamped); ok && ws.User != nil {
		r.SetCreatedByUserID(ws.User.ID)
	}
}
