package models

import "time"

// ProjectAssignment is one project membership an invitation will create on
// acceptance. A role that no longer belongs to the organization at acceptance
// time falls back to the project default role.
type ProjectAssignment struct {
	ProjectID uint  `json:"project_id"`
	RoleID    *uint `json:"role_id,omitempty"`
}

// Invitation lets an organization admin bring a user in by email. The raw
// token is returned once at creation; only its SHA-256 hash is stored.
// Consumed exactly once.
type Invitation struct {
	ID                 uint                `gorm:"primarykey" json:"id"`
	OrganizationID     uint                `gorm:"not null;index" json:"organization_id"`
	Organization       Organization        `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	Email              string              `gorm:"not null;index" json:"email"`
	InvitedByUserID    *uint               `gorm:"index" json:"invited_by_user_id,omitempty"`
	TokenHash          string              `gorm:"uniqueIndex;not null" json:"-"`
	OrgRoleID          *uint               `gorm:"index" json:"org_role_id,omitempty"`
	ProjectAssignments []ProjectAssignment `gorm:"serializer:json" json:"project_assignments"`
	ExpiresAt          time.Time           `gorm:"not null;index" json:"expires_at"`
	AcceptedAt         *time.Time          `json:"accepted_at,omitempty"`
	RevokedAt          *time.Time          `json:"revoked_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}
