package models

import "time"

// UserPermissionGrant is a direct user-level permission override, independent
// of role membership. A nil project means organization-wide; resource_type
// and resource_id narrow the grant to one record and are both-set-or-both-nil.
// Expired grants behave as if absent.
type UserPermissionGrant struct {
	ID              uint         `gorm:"primarykey" json:"id"`
	OrganizationID  uint         `gorm:"not null;index" json:"organization_id"`
	Organization    Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	ProjectID       *uint        `gorm:"index" json:"project_id,omitempty"`
	UserID          uint         `gorm:"not null;index" json:"user_id"`
	PermissionID    uint         `gorm:"not null;index" json:"permission_id"`
	Effect          Effect       `gorm:"type:varchar(10);not null;default:'allow';index" json:"effect"`
	ResourceType    *string      `gorm:"type:varchar(80);index" json:"resource_type,omitempty"`
	ResourceID      *uint        `gorm:"index" json:"resource_id,omitempty"`
	GrantedByUserID *uint        `gorm:"index" json:"granted_by_user_id,omitempty"`
	ExpiresAt       *time.Time   `json:"expires_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}
