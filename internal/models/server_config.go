package models

import "time"

// ServerConfigKeyServerID is the key under which the server's stable
// identifier is stored.
const ServerConfigKeyServerID = "server_id"

// ServerConfig is a key/value row for server-level settings that must
// survive restarts, such as the generated server ID.
type ServerConfig struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Key       string    `gorm:"uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
