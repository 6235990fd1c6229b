package models

import "time"

// OrganizationRolePermission assigns a permission effect to an organization
// role. Unique per (role, permission).
type OrganizationRolePermission struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	RoleID       uint       `gorm:"not null;index;uniqueIndex:uq_org_role_permission" json:"role_id"`
	Role         OrganizationRole `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"-"`
	PermissionID uint       `gorm:"not null;index;uniqueIndex:uq_org_role_permission" json:"permission_id"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE" json:"-"`
	Effect       Effect     `gorm:"type:varchar(10);not null;default:'allow';index" json:"effect"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ProjectRolePermission assigns a permission effect to a project role.
type ProjectRolePermission struct {
	ID           uint        `gorm:"primarykey" json:"id"`
	RoleID       uint        `gorm:"not null;index;uniqueIndex:uq_project_role_permission" json:"role_id"`
	Role         ProjectRole `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"-"`
	PermissionID uint        `gorm:"not null;index;uniqueIndex:uq_project_role_permission" json:"permission_id"`
	Permission   Permission  `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE" json:"-"`
	Effect       Effect      `gorm:"type:varchar(10);not null;default:'allow';index" json:"effect"`
	CreatedAt    time.Time   `json:"created_at"`
}
