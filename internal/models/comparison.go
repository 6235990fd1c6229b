package models

import "time"

// Comparison pins a set of runs side by side for review.
type Comparison struct {
	ID              uint         `gorm:"primarykey" json:"id"`
	OrganizationID  uint         `gorm:"not null;index" json:"organization_id"`
	Organization    Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	ProjectID       uint         `gorm:"not null;index" json:"project_id"`
	CreatedByUserID *uint        `gorm:"index" json:"created_by_user_id,omitempty"`
	VisibilityScope Visibility   `gorm:"type:varchar(20);not null;default:'project';index" json:"visibility_scope"`
	Name            string       `gorm:"not null" json:"name"`
	RunIDs          []uint       `gorm:"serializer:json" json:"run_ids"`
	CreatedAt       time.Time    `json:"created_at"`
}

func (c *Comparison) SetOrganizationID(id uint)       { c.OrganizationID = id }
func (c *Comparison) SetProjectID(id uint)            { c.ProjectID = id }
func (c *Comparison) SetCreatedByUserID(id uint)      { c.CreatedByUserID = &id }
func (c *Comparison) SetVisibilityScope(v Visibility) { c.VisibilityScope = v }
