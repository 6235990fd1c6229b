package models

import "time"

// AgentConfig describes the LLM agent a run invokes: model name plus
// free-form parameters.
type AgentConfig struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	OrganizationID  uint           `gorm:"not null;index" json:"organization_id"`
	Organization    Organization   `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	ProjectID       uint           `gorm:"not null;index" json:"project_id"`
	CreatedByUserID *uint          `gorm:"index" json:"created_by_user_id,omitempty"`
	VisibilityScope Visibility     `gorm:"type:varchar(20);not null;default:'project';index" json:"visibility_scope"`
	Name            string         `gorm:"not null" json:"name"`
	Model           string         `gorm:"not null" json:"model"`
	Parameters      map[string]any `gorm:"serializer:json" json:"parameters,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (a *AgentConfig) SetOrganizationID(id uint)       { a.OrganizationID = id }
func (a *AgentConfig) SetProjectID(id uint)            { a.ProjectID = id }
func (a *AgentConfig) SetCreatedByUserID(id uint)      { a.CreatedByUserID = &id }
func (a *AgentConfig) SetVisibilityScope(v Visibility) { a.VisibilityScope = v }
