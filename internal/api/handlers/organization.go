package handlers

import (
	"net/http"

	"github.com/axiom-eval/axiom/internal/audit"
	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OrganizationHandler struct {
	db *gorm.DB
}

func NewOrganizationHandler(db *gorm.DB) *OrganizationHandler {
	return &OrganizationHandler{db: db}
}

// CreateOrganizationRequest is the payload for creating an organization
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListOrganizations godoc
// @Summary List organizations the current user belongs to
// @Tags organizations
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Organization
// @Router /organizations [get]
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	user := currentUser(c)

	var orgs []models.Organization
	err := h.db.
		Joins("JOIN organization_memberships ON organization_memberships.organization_id = organizations.id").
		Where("organization_memberships.user_id = ? AND organization_memberships.is_active = ?", user.ID, true).
		Order("organizations.id ASC").
		Find(&orgs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch organizations"})
		return
	}

	c.JSON(http.StatusOK, orgs)
}

// CreateOrganization godoc
// @Summary Create an organization
// @Tags organizations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param organization body CreateOrganizationRequest true "Organization details"
// @Success 201 {object} models.Organization
// @Failure 400 {object} ErrorResponse
// @Router /organizations [post]
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	user := currentUser(c)

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	org, err := authz.CreateOrganizationWithDefaults(h.db, req.Name, &user.ID, false, false)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &org.ID, &user.ID, audit.ActionCreateOrganization, "organization", gin.H{"name": req.Name})
	c.JSON(http.StatusCreated, org)
}

// GetOrganization godoc
// @Summary Get the current organization
// @Tags organizations
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Organization
// @Failure 403 {object} ErrorResponse
// @Router /org [get]
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var org models.Organization
	if err := h.db.First(&org, ws.OrganizationID).Error; err != nil {
		respondError(c, service.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, org)
}

// UpdateOrganization godoc
// @Summary Update organization settings
// @Tags organizations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} models.Organization
// @Failure 403 {object} ErrorResponse
// @Router /org [patch]
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.write", nil); err != nil {
		respondError(c, err)
		return
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, ws.OrganizationID).Error; err != nil {
		respondError(c, service.ErrNotFound)
		return
	}
	if err := h.db.Model(&org).Update("name", req.Name).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to update organization"})
		return
	}
	c.JSON(http.StatusOK, org)
}

// DeleteOrganization godoc
// @Summary Delete the current organization
// @Description Personal organizations cannot be deleted
// @Tags organizations
// @Security BearerAuth
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /org [delete]
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.delete", nil); err != nil {
		respondError(c, err)
		return
	}

	var org models.Organization
	if err := h.db.First(&org, ws.OrganizationID).Error; err != nil {
		respondError(c, service.ErrNotFound)
		return
	}

	if err := service.DeleteOrganization(h.db, org.ID); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, nil, &ws.User.ID, audit.ActionDeleteOrganization, "organization", gin.H{"name": org.Name})
	c.Status(http.StatusNoContent)
}

// ListPermissionCatalog godoc
// @Summary List the permission catalog
// @Tags permissions
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Permission
// @Router /permissions [get]
func (h *OrganizationHandler) ListPermissionCatalog(c *gin.Context) {
	var permissions []models.Permission
	if err := h.db.Order("key ASC").Find(&permissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch permissions"})
		return
	}
	c.JSON(http.StatusOK, permissions)
}
