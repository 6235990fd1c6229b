package models

import "time"

// Permission is an immutable catalog entry. The key is "resource.action" and
// the catalog is fixed at deploy time: evaluation never invents new keys.
type Permission struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Key         string    `gorm:"uniqueIndex;not null" json:"key"`
	Resource    string    `gorm:"not null;index" json:"resource"`
	Action      string    `gorm:"not null;index" json:"action"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
