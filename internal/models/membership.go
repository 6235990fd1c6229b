package models

import "time"

// OrganizationMembership associates a user with an organization and at most
// one organization role. Unique per (organization, user); is_active
// soft-disables without deleting history.
type OrganizationMembership struct {
	ID             uint              `gorm:"primarykey" json:"id"`
	OrganizationID uint              `gorm:"not null;index;uniqueIndex:uq_org_membership_org_user" json:"organization_id"`
	Organization   Organization      `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	UserID         uint              `gorm:"not null;index;uniqueIndex:uq_org_membership_org_user" json:"user_id"`
	User           User              `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	RoleID         *uint             `gorm:"index" json:"role_id,omitempty"`
	Role           *OrganizationRole `gorm:"foreignKey:RoleID;constraint:OnDelete:SET NULL" json:"role,omitempty"`
	IsActive       bool              `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ProjectMembership associates a user with a project inside an organization.
// Unique per (project, user). An organization member without a project
// membership has no project access unless org-admin or holding an ad-hoc
// grant.
type ProjectMembership struct {
	ID             uint         `gorm:"primarykey" json:"id"`
	OrganizationID uint         `gorm:"not null;index" json:"organization_id"`
	ProjectID      uint         `gorm:"not null;index;uniqueIndex:uq_project_membership_project_user" json:"project_id"`
	Project        Project      `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	UserID         uint         `gorm:"not null;index;uniqueIndex:uq_project_membership_project_user" json:"user_id"`
	User           User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	RoleID         *uint        `gorm:"index" json:"role_id,omitempty"`
	Role           *ProjectRole `gorm:"foreignKey:RoleID;constraint:OnDelete:SET NULL" json:"role,omitempty"`
	IsActive       bool         `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
}
