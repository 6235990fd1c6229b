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

type AgentHandler struct {
	db *gorm.DB
}

func NewAgentHandler(db *gorm.DB) *AgentHandler {
	return &AgentHandler{db: db}
}

// AgentConfigRequest is the payload for creating or updating an agent config
type AgentConfigRequest struct {
	Name       string         `json:"name" binding:"required"`
	Model      string         `json:"model" binding:"required"`
	Parameters map[string]any `json:"parameters"`
}

func (h *AgentHandler) loadAgent(ws *workspace.Context, agentID uint) (*models.AgentConfig, error) {
	var agent models.AgentConfig
	err := workspace.ApplyTenancyFilter(h.db, &agent, ws).First(&agent, agentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return &agent, nil
}

// ListAgents godoc
// @Summary List agent configs visible in the current project
// @Tags agents
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.AgentConfig
// @Router /agents [get]
func (h *AgentHandler) ListAgents(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "agents.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var agents []models.AgentConfig
	if err := workspace.ApplyTenancyFilter(h.db, &models.AgentConfig{}, ws).
		Order("id ASC").Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch agent configs"})
		return
	}
	c.JSON(http.StatusOK, agents)
}

// CreateAgent godoc
// @Summary Create an agent config
// @Tags agents
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.AgentConfig
// @Router /agents [post]
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "agents.write", nil); err != nil {
		respondError(c, err)
		return
	}

	var req AgentConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	agent := models.AgentConfig{
		Name:            req.Name,
		Model:           req.Model,
		Parameters:      req.Parameters,
		VisibilityScope: models.VisibilityProject,
	}
	workspace.StampTenancyFields(&agent, ws)

	if err := h.db.Create(&agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create agent config"})
		return
	}
	c.JSON(http.StatusCreated, agent)
}

// GetAgent godoc
// @Summary Get an agent config
// @Tags agents
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.AgentConfig
// @Failure 404 {object} ErrorResponse
// @Router /agents/{id} [get]
func (h *AgentHandler) GetAgent(c *gin.Context) {
	ws := currentWorkspace(c)
	agentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	agent, err := h.loadAgent(ws, agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	allowed, err := authz.CanAccessProjectResource(h.db, ws, "agents.read",
		&authz.Resource{Type: "agent", ID: agent.ID})
	if err != nil {
		respondError(c, err)
		return
	}
	if !allowed {
		respondError(c, &service.ForbiddenError{Message: "missing permission: agents.read"})
		return
	}
	c.JSON(http.StatusOK, agent)
}

// UpdateAgent godoc
// @Summary Update an agent config
// @Tags agents
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} models.AgentConfig
// @Router /agents/{id} [put]
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	ws := currentWorkspace(c)
	agentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "agents.write",
		&authz.Resource{Type: "agent", ID: agentID}); err != nil {
		respondError(c, err)
		return
	}

	agent, err := h.loadAgent(ws, agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	var req AgentConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	agent.Name = req.Name
	agent.Model = req.Model
	agent.Parameters = req.Parameters
	if err := h.db.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to update agent config"})
		return
	}
	c.JSON(http.StatusOK, agent)
}

// DeleteAgent godoc
// @Summary Delete an agent config
// @Tags agents
// @Security BearerAuth
// @Success 204
// @Router /agents/{id} [delete]
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	ws := currentWorkspace(c)
	agentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "agents.delete",
		&authz.Resource{Type: "agent", ID: agentID}); err != nil {
		respondError(c, err)
		return
	}

	agent, err := h.loadAgent(ws, agentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.Delete(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete agent config"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ShareAgent godoc
// @Summary Share an agent config with the whole organization
// @Tags agents
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.AgentConfig
// @Router /agents/{id}/share [post]
func (h *AgentHandler) ShareAgent(c *gin.Context) {
	ws := currentWorkspace(c)
	agentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "agents.share",
		&authz.Resource{Type: "agent", ID: agentID}); err != nil {
		respondError(c, err)
		return
	}

	agent, err := h.loadAgent(ws, agentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.Model(agent).Update("visibility_scope", models.VisibilityOrganization).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to share agent config"})
		return
	}
	agent.VisibilityScope = models.VisibilityOrganization
	c.JSON(http.StatusOK, agent)
}
