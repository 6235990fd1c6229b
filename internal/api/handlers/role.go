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

type RoleHandler struct {
	db *gorm.DB
}

func NewRoleHandler(db *gorm.DB) *RoleHandler {
	return &RoleHandler{db: db}
}

// CreateRoleRequest is the payload for creating a custom role
type CreateRoleRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// ReplacePermissionsRequest is the payload for replacing a role's permission
// set
type ReplacePermissionsRequest struct {
	Permissions []service.RolePermissionItem `json:"permissions"`
}

// replacementRoleID parses the optional replacement_role_id query parameter
func replacementRoleID(c *gin.Context) (*uint, bool) {
	raw := c.Query("replacement_role_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "replacement_role_id must be a positive integer"})
		return nil, false
	}
	v := uint(id)
	return &v, true
}

// ListOrgRoles godoc
// @Summary List organization roles
// @Tags roles
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.OrganizationRole
// @Router /org/roles [get]
func (h *RoleHandler) ListOrgRoles(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.read", nil); err != nil {
		respondError(c, err)
		return
	}

	roles, err := service.ListOrganizationRoles(h.db, ws.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// CreateOrgRole godoc
// @Summary Create a custom organization role
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.OrganizationRole
// @Failure 409 {object} ErrorResponse
// @Router /org/roles [post]
func (h *RoleHandler) CreateOrgRole(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_roles", nil); err != nil {
		respondError(c, err)
		return
	}

	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	role, err := service.CreateOrganizationRole(h.db, ws.OrganizationID, req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionCreateRole, "organization_role",
		gin.H{"slug": role.Slug})
	c.JSON(http.StatusCreated, role)
}

// ReplaceOrgRolePermissions godoc
// @Summary Replace an organization role's permission set
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Success 204
// @Router /org/roles/{id}/permissions [put]
func (h *RoleHandler) ReplaceOrgRolePermissions(c *gin.Context) {
	ws := currentWorkspace(c)
	roleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_roles", nil); err != nil {
		respondError(c, err)
		return
	}

	var req ReplacePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := service.ReplaceOrganizationRolePermissions(h.db, ws.OrganizationID, roleID, req.Permissions); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionUpdateRole, "organization_role",
		gin.H{"role_id": roleID})
	c.Status(http.StatusNoContent)
}

// DeleteOrgRole godoc
// @Summary Delete a custom organization role
// @Description Deletes the role. If memberships or pending invitations still
// @Description reference it, a replacement_role_id query parameter is
// @Description required and the references are repointed atomically.
// @Tags roles
// @Security BearerAuth
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /org/roles/{id} [delete]
func (h *RoleHandler) DeleteOrgRole(c *gin.Context) {
	ws := currentWorkspace(c)
	roleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	replacement, ok := replacementRoleID(c)
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_roles", nil); err != nil {
		respondError(c, err)
		return
	}

	if err := service.DeleteOrganizationRole(h.db, ws.OrganizationID, roleID, replacement); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionDeleteRole, "organization_role",
		gin.H{"role_id": roleID})
	c.Status(http.StatusNoContent)
}

// ListProjectRoles godoc
// @Summary List project roles
// @Tags roles
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.ProjectRole
// @Router /org/project-roles [get]
func (h *RoleHandler) ListProjectRoles(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "projects.manage_roles", nil); err != nil {
		respondError(c, err)
		return
	}

	roles, err := service.ListProjectRoles(h.db, ws.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// CreateProjectRole godoc
// @Summary Create a custom project role
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.ProjectRole
// @Router /org/project-roles [post]
func (h *RoleHandler) CreateProjectRole(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "projects.manage_roles", nil); err != nil {
		respondError(c, err)
		return
	}

	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	role, err := service.CreateProjectRole(h.db, ws.OrganizationID, req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionCreateRole, "project_role",
		gin.H{"slug": role.Slug})
	c.JSON(http.StatusCreated, role)
}

// ReplaceProjectRolePermissions godoc
// @Summary Replace a project role's permission set
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Success 204
// @Router /org/project-roles/{id}/permissions [put]
func (h *RoleHandler) ReplaceProjectRolePermissions(c *gin.Context) {
	ws := currentWorkspace(c)
	roleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.manage_roles", nil); err != nil {
		respondError(c, err)
		return
	}

	var req ReplacePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := service.ReplaceProjectRolePermissions(h.db, ws.OrganizationID, roleID, req.Permissions); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionUpdateRole, "project_role",
		gin.H{"role_id": roleID})
	c.Status(http.StatusNoContent)
}

// DeleteProjectRole godoc
// @Summary Delete a custom project role
// @Tags roles
// @Security BearerAuth
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /org/project-roles/{id} [delete]
func (h *RoleHandler) DeleteProjectRole(c *gin.Context) {
	ws := currentWorkspace(c)
	roleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	replacement, ok := replacementRoleID(c)
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.manage_roles", nil); err != nil {
		respondError(c, err)
		return
	}

	if err := service.DeleteProjectRole(h.db, ws.OrganizationID, roleID, replacement); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionDeleteRole, "project_role",
		gin.H{"role_id": roleID})
	c.Status(http.StatusNoContent)
}
