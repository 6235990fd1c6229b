package models

import "time"

// CostPreviewStatus is the lifecycle state of a run cost preview.
type CostPreviewStatus string

const (
	CostPreviewStatusPending   CostPreviewStatus = "pending"
	CostPreviewStatusCompleted CostPreviewStatus = "completed"
	CostPreviewStatusFailed    CostPreviewStatus = "failed"
)

// RunCostPreview estimates what a run would cost before it is created: a
// sample of the suite's queries is priced and extrapolated over the full
// query count. A preview is consumed at most once, by the run created from
// it.
type RunCostPreview struct {
	ID                    uint              `gorm:"primarykey" json:"id"`
	OrganizationID        uint              `gorm:"not null;index" json:"organization_id"`
	Organization          Organization      `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	ProjectID             uint              `gorm:"not null;index" json:"project_id"`
	CreatedByUserID       *uint             `gorm:"index" json:"created_by_user_id,omitempty"`
	VisibilityScope       Visibility        `gorm:"type:varchar(20);not null;default:'project';index" json:"visibility_scope"`
	SuiteID               uint              `gorm:"not null;index" json:"suite_id"`
	AgentConfigID         uint              `gorm:"not null;index" json:"agent_config_id"`
	Label                 string            `gorm:"not null" json:"label"`
	SampleQueryIDs        []uint            `gorm:"serializer:json" json:"sample_query_ids"`
	TotalQueryCount       int               `gorm:"not null" json:"total_query_count"`
	SampleUsage           map[string]int    `gorm:"serializer:json" json:"sample_usage"`
	SampleCostUSD         float64           `gorm:"not null" json:"sample_cost_usd"`
	EstimatedTotalCostUSD float64           `gorm:"not null" json:"estimated_total_cost_usd"`
	PricingVersion        string            `gorm:"type:varchar(64);not null" json:"pricing_version"`
	Currency              string            `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	Status                CostPreviewStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ErrorMessage          string            `gorm:"type:text" json:"error_message,omitempty"`
	ConsumedAt            *time.Time        `json:"consumed_at,omitempty"`
	CreatedAt             time.Time         `gorm:"index" json:"created_at"`
}

func (p *RunCostPreview) SetOrganizationID(id uint)       { p.OrganizationID = id }
func (p *RunCostPreview) SetProjectID(id uint)            { p.ProjectID = id }
func (p *RunCostPreview) SetCreatedByUserID(id uint)      { p.CreatedByUserID = &id }
func (p *RunCostPreview) SetVisibilityScope(v Visibility) { p.VisibilityScope = v }
