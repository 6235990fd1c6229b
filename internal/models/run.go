package models

import "time"

// RunStatus is the execution state of a run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one execution of an agent config against a suite. Tenancy fields
// are stamped at creation and copied verbatim onto every result the executor
// produces.
type Run struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	OrganizationID  uint           `gorm:"not null;index" json:"organization_id"`
	Organization    Organization   `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	ProjectID       uint           `gorm:"not null;index" json:"project_id"`
	CreatedByUserID *uint          `gorm:"index" json:"created_by_user_id,omitempty"`
	VisibilityScope Visibility     `gorm:"type:varchar(20);not null;default:'project';index" json:"visibility_scope"`
	SuiteID         uint           `gorm:"not null;index" json:"suite_id"`
	Suite           BenchmarkSuite `gorm:"foreignKey:SuiteID" json:"-"`
	AgentConfigID   uint           `gorm:"not null;index" json:"agent_config_id"`
	AgentConfig     AgentConfig    `gorm:"foreignKey:AgentConfigID" json:"-"`
	Label           string         `gorm:"not null" json:"label"`
	Status          RunStatus      `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	ProgressCurrent int            `gorm:"default:0" json:"progress_current"`
	ProgressTotal   int            `gorm:"default:0" json:"progress_total"`
	ErrorMessage    string         `gorm:"type:text" json:"error_message,omitempty"`
	OutputDir       string         `gorm:"type:text" json:"output_dir,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (r *Run) SetOrganizationID(id uint)       { r.OrganizationID = id }
func (r *Run) SetProjectID(id uint)            { r.ProjectID = id }
func (r *Run) SetCreatedByUserID(id uint)      { r.CreatedByUserID = &id }
func (r *Run) SetVisibilityScope(v Visibility) { r.VisibilityScope = v }
