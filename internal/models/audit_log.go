package models

import "time"

// AuditLog records a sensitive administrative action.
type AuditLog struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	OrganizationID *uint     `gorm:"index" json:"organization_id,omitempty"`
	UserID         *uint     `gorm:"index" json:"user_id,omitempty"`
	Action         string    `gorm:"not null;index" json:"action"`
	Resource       string    `gorm:"not null" json:"resource"`
	DetailsJSON    string    `gorm:"type:text" json:"details_json"`
	CreatedAt      time.Time `json:"created_at"`
}
