package handlers

import (
	"net/http"
	"strconv"

	"github.com/axiom-eval/axiom/internal/audit"
	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	db *gorm.DB
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{db: db}
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: name + " must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

// ListProjects godoc
// @Summary List projects in the current organization
// @Tags projects
// @Security BearerAuth
// @Produce json
// @Param include_archived query bool false "Include archived projects"
// @Success 200 {array} models.Project
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "projects.read", nil); err != nil {
		respondError(c, err)
		return
	}

	includeArchived := c.Query("include_archived") == "true"
	// Org admins see every project; everyone else sees their memberships.
	var forUser *uint
	if !ws.IsOrgAdmin {
		forUser = &ws.User.ID
	}
	projects, err := service.ListProjects(h.db, ws.OrganizationID, forUser, includeArchived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProject godoc
// @Summary Create a project
// @Tags projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param project body service.ProjectInput true "Project details"
// @Success 201 {object} models.Project
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "projects.write", nil); err != nil {
		respondError(c, err)
		return
	}

	var req service.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	project, err := service.CreateProject(h.db, ws.OrganizationID, ws.User.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionCreateProject, "project", gin.H{"name": project.Name})
	c.JSON(http.StatusCreated, project)
}

// GetProject godoc
// @Summary Get a project
// @Tags projects
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Project
// @Failure 404 {object} ErrorResponse
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	ws := currentWorkspace(c)
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.read", nil); err != nil {
		respondError(c, err)
		return
	}

	project, err := service.GetProject(h.db, ws.OrganizationID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject godoc
// @Summary Update a project
// @Tags projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} models.Project
// @Router /projects/{id} [patch]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	ws := currentWorkspace(c)
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.write", nil); err != nil {
		respondError(c, err)
		return
	}

	var req service.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	project, err := service.UpdateProject(h.db, ws.OrganizationID, projectID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// ArchiveProject godoc
// @Summary Archive a project
// @Tags projects
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Project
// @Router /projects/{id}/archive [post]
func (h *ProjectHandler) ArchiveProject(c *gin.Context) {
	h.setArchived(c, true)
}

// UnarchiveProject godoc
// @Summary Unarchive a project
// @Tags projects
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Project
// @Router /projects/{id}/unarchive [post]
func (h *ProjectHandler) UnarchiveProject(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ProjectHandler) setArchived(c *gin.Context, archived bool) {
	ws := currentWorkspace(c)
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.delete", nil); err != nil {
		respondError(c, err)
		return
	}

	project, err := service.SetProjectArchived(h.db, ws.OrganizationID, projectID, archived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}
