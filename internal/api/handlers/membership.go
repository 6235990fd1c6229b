package handlers

import (
	"net/http"

	"github.com/axiom-eval/axiom/internal/audit"
	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MembershipHandler struct {
	db *gorm.DB
}

func NewMembershipHandler(db *gorm.DB) *MembershipHandler {
	return &MembershipHandler{db: db}
}

// AddMemberRequest is the payload for adding a member
type AddMemberRequest struct {
	UserID uint  `json:"user_id" binding:"required"`
	RoleID *uint `json:"role_id,omitempty"`
}

// UpdateMemberRoleRequest is the payload for changing a member's role
type UpdateMemberRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}

// ListOrgMembers godoc
// @Summary List organization members
// @Tags members
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.OrganizationMembership
// @Router /org/members [get]
func (h *MembershipHandler) ListOrgMembers(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.read", nil); err != nil {
		respondError(c, err)
		return
	}

	members, err := service.ListOrganizationMembers(h.db, ws.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// AddOrgMember godoc
// @Summary Add an organization member
// @Tags members
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.OrganizationMembership
// @Failure 409 {object} ErrorResponse
// @Router /org/members [post]
func (h *MembershipHandler) AddOrgMember(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_members", nil); err != nil {
		respondError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	membership, err := service.AddOrganizationMember(h.db, ws.OrganizationID, req.UserID, req.RoleID)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionAddMember, "organization_membership",
		gin.H{"user_id": req.UserID})
	c.JSON(http.StatusCreated, membership)
}

// UpdateOrgMemberRole godoc
// @Summary Change an organization member's role
// @Tags members
// @Security BearerAuth
// @Accept json
// @Success 204
// @Router /org/members/{user_id} [patch]
func (h *MembershipHandler) UpdateOrgMemberRole(c *gin.Context) {
	ws := currentWorkspace(c)
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_members", nil); err != nil {
		respondError(c, err)
		return
	}

	var req UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := service.UpdateOrganizationMemberRole(h.db, ws.OrganizationID, userID, req.RoleID); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionChangeMemberRole, "organization_membership",
		gin.H{"user_id": userID, "role_id": req.RoleID})
	c.Status(http.StatusNoContent)
}

// RemoveOrgMember godoc
// @Summary Remove an organization member
// @Tags members
// @Security BearerAuth
// @Success 204
// @Router /org/members/{user_id} [delete]
func (h *MembershipHandler) RemoveOrgMember(c *gin.Context) {
	ws := currentWorkspace(c)
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_members", nil); err != nil {
		respondError(c, err)
		return
	}

	if err := service.RemoveOrganizationMember(h.db, ws.OrganizationID, userID); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionRemoveMember, "organization_membership",
		gin.H{"user_id": userID})
	c.Status(http.StatusNoContent)
}

// ListProjectMembers godoc
// @Summary List project members
// @Tags members
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.ProjectMembership
// @Router /projects/{id}/members [get]
func (h *MembershipHandler) ListProjectMembers(c *gin.Context) {
	ws := currentWorkspace(c)
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.read", nil); err != nil {
		respondError(c, err)
		return
	}

	members, err := service.ListProjectMembers(h.db, ws.OrganizationID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// AddProjectMember godoc
// @Summary Add a project member
// @Tags members
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.ProjectMembership
// @Router /projects/{id}/members [post]
func (h *MembershipHandler) AddProjectMember(c *gin.Context) {
	ws := currentWorkspace(c)
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.manage_members", nil); err != nil {
		respondError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	membership, err := service.AddProjectMember(h.db, ws.OrganizationID, projectID, req.UserID, req.RoleID)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionAddMember, "project_membership",
		gin.H{"user_id": req.UserID, "project_id": projectID})
	c.JSON(http.StatusCreated, membership)
}

// UpdateProjectMemberRole godoc
// @Summary Change a project member's role
// @Tags members
// @Security BearerAuth
// @Accept json
// @Success 204
// @Router /projects/{id}/members/{user_id} [patch]
func (h *MembershipHandler) UpdateProjectMemberRole(c *gin.Context) {
	ws := currentWorkspace(c)
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.manage_members", nil); err != nil {
		respondError(c, err)
		return
	}

	var req UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := service.UpdateProjectMemberRole(h.db, ws.OrganizationID, projectID, userID, req.RoleID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveProjectMember godoc
// @Summary Remove a project member
// @Tags members
// @Security BearerAuth
// @Success 204
// @Router /projects/{id}/members/{user_id} [delete]
func (h *MembershipHandler) RemoveProjectMember(c *gin.Context) {
	ws := currentWorkspace(c)
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "projects.manage_members", nil); err != nil {
		respondError(c, err)
		return
	}

	if err := service.RemoveProjectMember(h.db, ws.OrganizationID, projectID, userID); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionRemoveMember, "project_membership",
		gin.H{"user_id": userID, "project_id": projectID})
	c.Status(http.StatusNoContent)
}
