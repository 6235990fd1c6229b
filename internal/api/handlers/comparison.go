package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/axiom-eval/axiom/internal/workspace"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ComparisonHandler struct {
	db *gorm.DB
}

func NewComparisonHandler(db *gorm.DB) *ComparisonHandler {
	return &ComparisonHandler{db: db}
}

// CreateComparisonRequest is the payload for pinning runs side by side
type CreateComparisonRequest struct {
	Name   string `json:"name" binding:"required"`
	RunIDs []uint `json:"run_ids" binding:"required,min=2"`
}

// ListComparisons godoc
// @Summary List comparisons visible in the current project
// @Tags comparisons
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Comparison
// @Router /comparisons [get]
func (h *ComparisonHandler) ListComparisons(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "comparisons.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var comparisons []models.Comparison
	if err := workspace.ApplyTenancyFilter(h.db, &models.Comparison{}, ws).
		Order("id DESC").Find(&comparisons).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch comparisons"})
		return
	}
	c.JSON(http.StatusOK, comparisons)
}

// CreateComparison godoc
// @Summary Pin a set of runs for side-by-side review
// @Tags comparisons
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.Comparison
// @Router /comparisons [post]
func (h *ComparisonHandler) CreateComparison(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "comparisons.write", nil); err != nil {
		respondError(c, err)
		return
	}

	var req CreateComparisonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	// Every pinned run must be visible from this workspace.
	var visible int64
	if err := workspace.ApplyTenancyFilter(h.db.Model(&models.Run{}), &models.Run{}, ws).
		Where("id IN ?", req.RunIDs).Count(&visible).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to verify runs"})
		return
	}
	if visible != int64(len(req.RunIDs)) {
		respondError(c, &service.ValidationError{Message: "one or more runs do not exist in this project"})
		return
	}

	comparison := models.Comparison{
		Name:            req.Name,
		RunIDs:          req.RunIDs,
		VisibilityScope: models.VisibilityProject,
	}
	workspace.StampTenancyFields(&comparison, ws)

	if err := h.db.Create(&comparison).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create comparison"})
		return
	}
	c.JSON(http.StatusCreated, comparison)
}

// GetComparison godoc
// @Summary Get a comparison
// @Tags comparisons
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Comparison
// @Failure 404 {object} ErrorResponse
// @Router /comparisons/{id} [get]
func (h *ComparisonHandler) GetComparison(c *gin.Context) {
	ws := currentWorkspace(c)
	comparisonID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "comparisons.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var comparison models.Comparison
	err := workspace.ApplyTenancyFilter(h.db, &comparison, ws).First(&comparison, comparisonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, fmt.Errorf("comparison %d: %w", comparisonID, service.ErrNotFound))
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch comparison"})
		return
	}
	c.JSON(http.StatusOK, comparison)
}

// DeleteComparison godoc
// @Summary Delete a comparison
// @Tags comparisons
// @Security BearerAuth
// @Success 204
// @Router /comparisons/{id} [delete]
func (h *ComparisonHandler) DeleteComparison(c *gin.Context) {
	ws := currentWorkspace(c)
	comparisonID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "comparisons.delete",
		&authz.Resource{Type: "comparison", ID: comparisonID}); err != nil {
		respondError(c, err)
		return
	}

	var comparison models.Comparison
	err := workspace.ApplyTenancyFilter(h.db, &comparison, ws).First(&comparison, comparisonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, fmt.Errorf("comparison %d: %w", comparisonID, service.ErrNotFound))
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch comparison"})
		return
	}
	if err := h.db.Delete(&comparison).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete comparison"})
		return
	}
	c.Status(http.StatusNoContent)
}
