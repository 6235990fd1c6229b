package handlers

import (
	"errors"
	"net/http"

	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/axiom-eval/axiom/internal/workspace"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SuiteHandler struct {
	db *gorm.DB
}

func NewSuiteHandler(db *gorm.DB) *SuiteHandler {
	return &SuiteHandler{db: db}
}

// CreateSuiteRequest is the payload for creating a benchmark suite
type CreateSuiteRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// AddQueryRequest is the payload for adding a query to a suite
type AddQueryRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	Expected string `json:"expected"`
}

// loadSuite fetches a suite visible from the workspace: either owned by the
// current project or shared organization-wide.
func (h *SuiteHandler) loadSuite(ws *workspace.Context, suiteID uint) (*models.BenchmarkSuite, error) {
	var suite models.BenchmarkSuite
	err := workspace.ApplyTenancyFilter(h.db, &suite, ws).First(&suite, suiteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return &suite, nil
}

// ListSuites godoc
// @Summary List benchmark suites visible in the current project
// @Tags suites
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.BenchmarkSuite
// @Router /suites [get]
func (h *SuiteHandler) ListSuites(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "suites.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var suites []models.BenchmarkSuite
	if err := workspace.ApplyTenancyFilter(h.db, &models.BenchmarkSuite{}, ws).
		Order("id ASC").Find(&suites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch suites"})
		return
	}
	c.JSON(http.StatusOK, suites)
}

// CreateSuite godoc
// @Summary Create a benchmark suite
// @Tags suites
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.BenchmarkSuite
// @Router /suites [post]
func (h *SuiteHandler) CreateSuite(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "suites.write", nil); err != nil {
		respondError(c, err)
		return
	}

	var req CreateSuiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	suite := models.BenchmarkSuite{
		Name:            req.Name,
		Description:     req.Description,
		Tags:            req.Tags,
		VisibilityScope: models.VisibilityProject,
	}
	workspace.StampTenancyFields(&suite, ws)

	if err := h.db.Create(&suite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create suite"})
		return
	}
	c.JSON(http.StatusCreated, suite)
}

// GetSuite godoc
// @Summary Get a benchmark suite
// @Tags suites
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.BenchmarkSuite
// @Failure 404 {object} ErrorResponse
// @Router /suites/{id} [get]
func (h *SuiteHandler) GetSuite(c *gin.Context) {
	ws := currentWorkspace(c)
	suiteID, ok := pathID(c, "id")
	if !ok {
		return
	}

	suite, err := h.loadSuite(ws, suiteID)
	if err != nil {
		respondError(c, err)
		return
	}

	allowed, err := authz.CanAccessProjectResource(h.db, ws, "suites.read",
		&authz.Resource{Type: "suite", ID: suite.ID})
	if err != nil {
		respondError(c, err)
		return
	}
	if !allowed {
		respondError(c, &service.ForbiddenError{Message: "missing permission: suites.read"})
		return
	}
	c.JSON(http.StatusOK, suite)
}

// DeleteSuite godoc
// @Summary Delete a benchmark suite
// @Tags suites
// @Security BearerAuth
// @Success 204
// @Router /suites/{id} [delete]
func (h *SuiteHandler) DeleteSuite(c *gin.Context) {
	ws := currentWorkspace(c)
	suiteID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "suites.delete",
		&authz.Resource{Type: "suite", ID: suiteID}); err != nil {
		respondError(c, err)
		return
	}

	suite, err := h.loadSuite(ws, suiteID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.Delete(suite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete suite"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ShareSuite godoc
// @Summary Share a suite with the whole organization
// @Tags suites
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.BenchmarkSuite
// @Router /suites/{id}/share [post]
func (h *SuiteHandler) ShareSuite(c *gin.Context) {
	ws := currentWorkspace(c)
	suiteID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "suites.share",
		&authz.Resource{Type: "suite", ID: suiteID}); err != nil {
		respondError(c, err)
		return
	}

	suite, err := h.loadSuite(ws, suiteID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.Model(suite).Update("visibility_scope", models.VisibilityOrganization).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to share suite"})
		return
	}
	suite.VisibilityScope = models.VisibilityOrganization
	c.JSON(http.StatusOK, suite)
}

// ListQueries godoc
// @Summary List a suite's queries
// @Tags suites
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Query
// @Router /suites/{id}/queries [get]
func (h *SuiteHandler) ListQueries(c *gin.Context) {
	ws := currentWorkspace(c)
	suiteID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "suites.read", nil); err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.loadSuite(ws, suiteID); err != nil {
		respondError(c, err)
		return
	}

	var queries []models.Query
	if err := h.db.Where("suite_id = ?", suiteID).Order("id ASC").Find(&queries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch queries"})
		return
	}
	c.JSON(http.StatusOK, queries)
}

// AddQuery godoc
// @Summary Add a query to a suite
// @Tags suites
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.Query
// @Router /suites/{id}/queries [post]
func (h *SuiteHandler) AddQuery(c *gin.Context) {
	ws := currentWorkspace(c)
	suiteID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "suites.write",
		&authz.Resource{Type: "suite", ID: suiteID}); err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.loadSuite(ws, suiteID); err != nil {
		respondError(c, err)
		return
	}

	var req AddQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	query := models.Query{
		SuiteID:  suiteID,
		Prompt:   req.Prompt,
		Expected: req.Expected,
	}
	if err := h.db.Create(&query).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create query"})
		return
	}
	c.JSON(http.StatusCreated, query)
}
