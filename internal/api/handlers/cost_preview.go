package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/executor"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/axiom-eval/axiom/internal/workspace"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Number of suite queries priced before extrapolating to the full count.
const costPreviewSampleSize = 3

type CostPreviewHandler struct {
	db *gorm.DB
}

func NewCostPreviewHandler(db *gorm.DB) *CostPreviewHandler {
	return &CostPreviewHandler{db: db}
}

// CreateCostPreviewRequest is the payload for estimating a run's cost
type CreateCostPreviewRequest struct {
	SuiteID       uint   `json:"suite_id" binding:"required"`
	AgentConfigID uint   `json:"agent_config_id" binding:"required"`
	Label         string `json:"label"`
}

// CreateCostPreview godoc
// @Summary Estimate what a run would cost before launching it
// @Description Prices a sample of the suite's queries and extrapolates
// @Tags cost-previews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.RunCostPreview
// @Failure 404 {object} ErrorResponse
// @Router /cost-previews [post]
func (h *CostPreviewHandler) CreateCostPreview(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "runs.execute", nil); err != nil {
		respondError(c, err)
		return
	}

	var req CreateCostPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var suite models.BenchmarkSuite
	if err := workspace.ApplyTenancyFilter(h.db, &suite, ws).First(&suite, req.SuiteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "suite not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch suite"})
		return
	}
	var agent models.AgentConfig
	if err := workspace.ApplyTenancyFilter(h.db, &agent, ws).First(&agent, req.AgentConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "agent config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch agent config"})
		return
	}

	var queries []models.Query
	if err := h.db.Where("suite_id = ?", suite.ID).Order("id ASC").Find(&queries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch queries"})
		return
	}
	if len(queries) == 0 {
		respondError(c, &service.ValidationError{Message: "suite has no queries to price"})
		return
	}

	sample := queries
	if len(sample) > costPreviewSampleSize {
		sample = sample[:costPreviewSampleSize]
	}

	sampleUsage := map[string]int{}
	sampleIDs := make([]uint, 0, len(sample))
	var sampleCost float64
	for _, query := range sample {
		usage := executor.EstimateUsage(query.Prompt, query.Expected)
		for k, v := range usage {
			sampleUsage[k] += v
		}
		cost, _ := executor.CalculateCost(agent.Model, usage)
		sampleCost += cost
		sampleIDs = append(sampleIDs, query.ID)
	}
	perQuery := sampleCost / float64(len(sample))

	label := req.Label
	if label == "" {
		label = fmt.Sprintf("%s / %s", agent.Name, suite.Name)
	}

	preview := models.RunCostPreview{
		SuiteID:               suite.ID,
		AgentConfigID:         agent.ID,
		Label:                 label,
		SampleQueryIDs:        sampleIDs,
		TotalQueryCount:       len(queries),
		SampleUsage:           sampleUsage,
		SampleCostUSD:         roundUSD(sampleCost),
		EstimatedTotalCostUSD: roundUSD(perQuery * float64(len(queries))),
		PricingVersion:        executor.PricingVersion,
		Currency:              "USD",
		Status:                models.CostPreviewStatusCompleted,
		VisibilityScope:       models.VisibilityProject,
	}
	workspace.StampTenancyFields(&preview, ws)

	if err := h.db.Create(&preview).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create cost preview"})
		return
	}
	c.JSON(http.StatusCreated, preview)
}

// ListCostPreviews godoc
// @Summary List run cost previews in the current project
// @Tags cost-previews
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.RunCostPreview
// @Router /cost-previews [get]
func (h *CostPreviewHandler) ListCostPreviews(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "runs.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var previews []models.RunCostPreview
	if err := workspace.ApplyTenancyFilter(h.db, &models.RunCostPreview{}, ws).
		Order("id DESC").Find(&previews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch cost previews"})
		return
	}
	c.JSON(http.StatusOK, previews)
}

// GetCostPreview godoc
// @Summary Get a run cost preview
// @Tags cost-previews
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.RunCostPreview
// @Failure 404 {object} ErrorResponse
// @Router /cost-previews/{id} [get]
func (h *CostPreviewHandler) GetCostPreview(c *gin.Context) {
	ws := currentWorkspace(c)
	previewID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "runs.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var preview models.RunCostPreview
	err := workspace.ApplyTenancyFilter(h.db, &preview, ws).First(&preview, previewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "cost preview not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch cost preview"})
		return
	}
	c.JSON(http.StatusOK, preview)
}
