package models

import "time"

// AppNotification is an organization-scoped message for one user (run
// finished, invitation accepted, and so on). Not project-scoped.
type AppNotification struct {
	ID             uint         `gorm:"primarykey" json:"id"`
	OrganizationID uint         `gorm:"not null;index" json:"organization_id"`
	Organization   Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	UserID         uint         `gorm:"not null;index" json:"user_id"`
	Title          string       `gorm:"not null" json:"title"`
	Body           string       `gorm:"type:text" json:"body"`
	ReadAt         *time.Time   `json:"read_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (n *AppNotification) SetOrganizationID(id uint) { n.OrganizationID = id }
