package models

import "time"

// TraceStatus is the lifecycle state of one agent invocation trace.
type TraceStatus string

const (
	TraceStatusStarted   TraceStatus = "started"
	TraceStatusCompleted TraceStatus = "completed"
	TraceStatusFailed    TraceStatus = "failed"
)

// TraceLog records a single agent invocation: the model called, token usage
// and latency. Written by the worker as a run executes; runs cascade their
// traces on deletion.
type TraceLog struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	OrganizationID  uint           `gorm:"not null;index" json:"organization_id"`
	Organization    Organization   `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	ProjectID       uint           `gorm:"not null;index" json:"project_id"`
	CreatedByUserID *uint          `gorm:"index" json:"created_by_user_id,omitempty"`
	RunID           *uint          `gorm:"index" json:"run_id,omitempty"`
	Run             *Run           `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"-"`
	QueryID         *uint          `gorm:"index" json:"query_id,omitempty"`
	Provider        string         `gorm:"type:varchar(50);not null;default:'local'" json:"provider"`
	Endpoint        string         `gorm:"type:varchar(120);not null" json:"endpoint"`
	Model           string         `gorm:"type:varchar(255);index" json:"model"`
	Status          TraceStatus    `gorm:"type:varchar(20);not null;default:'started';index" json:"status"`
	Usage           map[string]int `gorm:"serializer:json" json:"usage,omitempty"`
	Error           string         `gorm:"type:text" json:"error,omitempty"`
	LatencyMS       *int64         `json:"latency_ms,omitempty"`
	StartedAt       time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}

func (t *TraceLog) SetOrganizationID(id uint)  { t.OrganizationID = id }
func (t *TraceLog) SetProjectID(id uint)       { t.ProjectID = id }
func (t *TraceLog) SetCreatedByUserID(id uint) { t.CreatedByUserID = &id }
