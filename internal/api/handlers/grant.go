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

type GrantHandler struct {
	db *gorm.DB
}

func NewGrantHandler(db *gorm.DB) *GrantHandler {
	return &GrantHandler{db: db}
}

func optionalID(c *gin.Context, name string) *uint {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

// ListGrants godoc
// @Summary List permission grants in the organization
// @Tags grants
// @Security BearerAuth
// @Produce json
// @Param user_id query int false "Filter by user"
// @Param project_id query int false "Filter by project"
// @Success 200 {array} models.UserPermissionGrant
// @Router /org/grants [get]
func (h *GrantHandler) ListGrants(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_permissions", nil); err != nil {
		respondError(c, err)
		return
	}

	grants, err := service.ListGrants(h.db, ws.OrganizationID, optionalID(c, "user_id"), optionalID(c, "project_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

// CreateGrant godoc
// @Summary Create a permission grant
// @Tags grants
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param grant body service.GrantInput true "Grant details"
// @Success 201 {object} models.UserPermissionGrant
// @Failure 400 {object} ErrorResponse
// @Router /org/grants [post]
func (h *GrantHandler) CreateGrant(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_permissions", nil); err != nil {
		respondError(c, err)
		return
	}

	var req service.GrantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	grant, err := service.CreateGrant(h.db, ws.OrganizationID, &ws.User.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionCreateGrant, "permission_grant",
		gin.H{"user_id": req.UserID, "permission": req.PermissionKey, "effect": req.Effect})
	c.JSON(http.StatusCreated, grant)
}

// DeleteGrant godoc
// @Summary Delete a permission grant
// @Tags grants
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /org/grants/{id} [delete]
func (h *GrantHandler) DeleteGrant(c *gin.Context) {
	ws := currentWorkspace(c)
	grantID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_permissions", nil); err != nil {
		respondError(c, err)
		return
	}

	if err := service.DeleteGrant(h.db, ws.OrganizationID, grantID); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionDeleteGrant, "permission_grant",
		gin.H{"grant_id": grantID})
	c.Status(http.StatusNoContent)
}
