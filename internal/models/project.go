package models

import "time"

// Project is the unit of day-to-day collaboration inside an organization.
// Archived projects stay readable but drop out of default listings.
type Project struct {
	ID              uint         `gorm:"primarykey" json:"id"`
	OrganizationID  uint         `gorm:"not null;index;uniqueIndex:uq_projects_org_name" json:"organization_id"`
	Organization    Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	Name            string       `gorm:"not null;uniqueIndex:uq_projects_org_name" json:"name"`
	Description     string       `gorm:"type:text" json:"description"`
	IsArchived      bool         `gorm:"not null;default:false;index" json:"is_archived"`
	CreatedByUserID *uint        `gorm:"index" json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
