package models

import "time"

// OrganizationRole is a named permission bundle applied through organization
// memberships. Slugs are unique per organization; built-in roles cannot be
// deleted and their slugs are reserved.
type OrganizationRole struct {
	ID             uint         `gorm:"primarykey" json:"id"`
	OrganizationID uint         `gorm:"not null;index;uniqueIndex:uq_org_roles_org_slug" json:"organization_id"`
	Organization   Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	Name           string       `gorm:"not null" json:"name"`
	Slug           string       `gorm:"not null;uniqueIndex:uq_org_roles_org_slug" json:"slug"`
	IsBuiltin      bool         `gorm:"not null;default:false;index" json:"is_builtin"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ProjectRole is the project-scope counterpart of OrganizationRole. The two
// are kept as parallel concrete types so each carries its own uniqueness
// constraint and foreign keys.
type ProjectRole struct {
	ID             uint         `gorm:"primarykey" json:"id"`
	OrganizationID uint         `gorm:"not null;index;uniqueIndex:uq_project_roles_org_slug" json:"organization_id"`
	Organization   Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	Name           string       `gorm:"not null" json:"name"`
	Slug           string       `gorm:"not null;uniqueIndex:uq_project_roles_org_slug" json:"slug"`
	IsBuiltin      bool         `gorm:"not null;default:false;index" json:"is_builtin"`
	CreatedAt      time.Time    `json:"created_at"`
}
