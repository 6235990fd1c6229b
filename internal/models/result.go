package models

import "time"

// Result is one graded agent response for a query within a run. Its tenancy
// fields mirror the run's, stamped by the worker when the result is written.
type Result struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	OrganizationID  uint       `gorm:"not null;index" json:"organization_id"`
	ProjectID       uint       `gorm:"not null;index" json:"project_id"`
	VisibilityScope Visibility `gorm:"type:varchar(20);not null;default:'project';index" json:"visibility_scope"`
	RunID           uint       `gorm:"not null;index" json:"run_id"`
	Run             Run        `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"-"`
	QueryID         uint       `gorm:"not null;index" json:"query_id"`
	TraceLogID      *uint      `gorm:"index" json:"trace_log_id,omitempty"`
	ResponseText    string     `gorm:"type:text" json:"response_text"`
	Score           *float64   `json:"score,omitempty"`
	GradeNotes      string     `gorm:"type:text" json:"grade_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (r *Result) SetOrganizationID(id uint)       { r.OrganizationID = id }
func (r *Result) SetProjectID(id uint)            { r.ProjectID = id }
func (r *Result) SetVisibilityScope(v Visibility) { r.VisibilityScope = v }
