package models

import "time"

// BenchmarkSuite is a tenant-scoped dataset of queries to evaluate agents
// against.
type BenchmarkSuite struct {
	ID              uint         `gorm:"primarykey" json:"id"`
	OrganizationID  uint         `gorm:"not null;index" json:"organization_id"`
	Organization    Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	ProjectID       uint         `gorm:"not null;index" json:"project_id"`
	CreatedByUserID *uint        `gorm:"index" json:"created_by_user_id,omitempty"`
	VisibilityScope Visibility   `gorm:"type:varchar(20);not null;default:'project';index" json:"visibility_scope"`
	Name            string       `gorm:"not null" json:"name"`
	Description     string       `gorm:"type:text" json:"description"`
	Tags            []string     `gorm:"serializer:json" json:"tags"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (s *BenchmarkSuite) SetOrganizationID(id uint)       { s.OrganizationID = id }
func (s *BenchmarkSuite) SetProjectID(id uint)            { s.ProjectID = id }
func (s *BenchmarkSuite) SetCreatedByUserID(id uint)      { s.CreatedByUserID = &id }
func (s *BenchmarkSuite) SetVisibilityScope(v Visibility) { s.VisibilityScope = v }

// Query is one prompt inside a suite, with an optional expected answer used
// for grading.
type Query struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	SuiteID   uint           `gorm:"not null;index" json:"suite_id"`
	Suite     BenchmarkSuite `gorm:"foreignKey:SuiteID;constraint:OnDelete:CASCADE" json:"-"`
	Prompt    string         `gorm:"type:text;not null" json:"prompt"`
	Expected  string         `gorm:"type:text" json:"expected"`
	CreatedAt time.Time      `json:"created_at"`
}
