package models

import "time"

// Organization is the tenant root. Personal organizations are auto-created at
// signup (one per user) and cannot be deleted; the bootstrap organization is
// the migration target for data that predates multi-tenancy.
type Organization struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	IsPersonal  bool      `gorm:"not null;default:false;index" json:"is_personal"`
	IsBootstrap bool      `gorm:"not null;default:false;index" json:"is_bootstrap"`
	OwnerUserID *uint     `gorm:"index" json:"owner_user_id,omitempty"`
	OwnerUser   *User     `gorm:"foreignKey:OwnerUserID" json:"owner_user,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
