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

type InvitationHandler struct {
	db *gorm.DB
}

func NewInvitationHandler(db *gorm.DB) *InvitationHandler {
	return &InvitationHandler{db: db}
}

// InvitationResponse carries the invitation together with the raw token,
// returned exactly once at creation
type InvitationResponse struct {
	Invitation *models.Invitation `json:"invitation"`
	Token      string             `json:"token"`
}

// AcceptInvitationRequest is the payload for accepting an invitation
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// ListInvitations godoc
// @Summary List organization invitations
// @Tags invitations
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Invitation
// @Router /org/invitations [get]
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_invites", nil); err != nil {
		respondError(c, err)
		return
	}

	invitations, err := service.ListInvitations(h.db, ws.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invitations)
}

// CreateInvitation godoc
// @Summary Invite a user by email
// @Tags invitations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param invitation body service.InvitationInput true "Invitation details"
// @Success 201 {object} InvitationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /org/invitations [post]
func (h *InvitationHandler) CreateInvitation(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_invites", nil); err != nil {
		respondError(c, err)
		return
	}

	var req service.InvitationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	invitation, token, err := service.CreateInvitation(h.db, ws.OrganizationID, &ws.User.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionCreateInvitation, "invitation",
		gin.H{"email": invitation.Email})
	c.JSON(http.StatusCreated, InvitationResponse{Invitation: invitation, Token: token})
}

// RevokeInvitation godoc
// @Summary Revoke a pending invitation
// @Tags invitations
// @Security BearerAuth
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /org/invitations/{id} [delete]
func (h *InvitationHandler) RevokeInvitation(c *gin.Context) {
	ws := currentWorkspace(c)
	invitationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "organizations.manage_invites", nil); err != nil {
		respondError(c, err)
		return
	}

	if err := service.RevokeInvitation(h.db, ws.OrganizationID, invitationID); err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionRevokeInvitation, "invitation",
		gin.H{"invitation_id": invitationID})
	c.Status(http.StatusNoContent)
}

// AcceptInvitation godoc
// @Summary Accept an invitation
// @Description Consumes an invitation token for the authenticated user. No
// @Description workspace context needed; the invitation names the
// @Description organization.
// @Tags invitations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} models.Invitation
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /invitations/accept [post]
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	invitation, err := service.AcceptInvitation(h.db, req.Token, user)
	if err != nil {
		respondError(c, err)
		return
	}

	audit.LogAction(h.db, &invitation.OrganizationID, &user.ID, audit.ActionAcceptInvitation, "invitation",
		gin.H{"invitation_id": invitation.ID})
	c.JSON(http.StatusOK, invitation)
}
