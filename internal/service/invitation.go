package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// DefaultInvitationTTL is how long an invitation stays acceptable when the
// caller does not choose an expiry.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// InvitationInput is the request to invite a user into an organization by
// email, with an optional organization role and project assignments created
// on acceptance.
type InvitationInput struct {
	Email              string                     `json:"email"`
	OrgRoleID          *uint                      `json:"org_role_id,omitempty"`
	ProjectAssignments []models.ProjectAssignment `json:"project_assignments,omitempty"`
	ExpiresAt          *time.Time                 `json:"expires_at,omitempty"`
}

func hashInvitationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newInvitationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateInvitation records an invitation and returns it together with the raw
// token. The raw token is never stored and cannot be recovered later.
func CreateInvitation(db *gorm.DB, organizationID uint, invitedBy *uint, input InvitationInput) (*models.Invitation, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", &ValidationError{Message: "a valid email is required"}
	}
	if input.OrgRoleID != nil {
		var count int64
		if err := db.Model(&models.OrganizationRole{}).
			Where("id = ? AND organization_id = ?", *input.OrgRoleID, organizationID).
			Count(&count).Error; err != nil {
			return nil, "", err
		}
		if count == 0 {
			return nil, "", &ValidationError{Message: "organization role not found in organization"}
		}
	}
	for _, assignment := range input.ProjectAssignments {
		var count int64
		if err := db.Model(&models.Project{}).
			Where("id = ? AND organization_id = ?", assignment.ProjectID, organizationID).
			Count(&count).Error; err != nil {
			return nil, "", err
		}
		if count == 0 {
			return nil, "", fmt.Errorf("project %d in organization %d: %w", assignment.ProjectID, organizationID, ErrNotFound)
		}
	}

	var pendingCount int64
	if err := db.Model(&models.Invitation{}).
		Where("organization_id = ? AND email = ? AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > ?",
			organizationID, email, time.Now().UTC()).
		Count(&pendingCount).Error; err != nil {
		return nil, "", err
	}
	if pendingCount > 0 {
		return nil, "", &ConflictError{Message: fmt.Sprintf("a pending invitation for %s already exists", email)}
	}

	token, err := newInvitationToken()
	if err != nil {
		return nil, "", err
	}
	expiresAt := time.Now().UTC().Add(DefaultInvitationTTL)
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(time.Now().UTC()) {
			return nil, "", &ValidationError{Message: "expires_at must be in the future"}
		}
		expiresAt = input.ExpiresAt.UTC()
	}

	invitation := models.Invitation{
		OrganizationID:     organizationID,
		Email:              email,
		InvitedByUserID:    invitedBy,
		TokenHash:          hashInvitationToken(token),
		OrgRoleID:          input.OrgRoleID,
		ProjectAssignments: input.ProjectAssignments,
		ExpiresAt:          expiresAt,
	}
	if err := db.Create(&invitation).Error; err != nil {
		return nil, "", err
	}
	return &invitation, token, nil
}

// ListInvitations returns the organization's invitations, newest first.
func ListInvitations(db *gorm.DB, organizationID uint) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := db.Where("organization_id = ?", organizationID).
		Order("id DESC").Find(&invitations).Error
	return invitations, err
}

// RevokeInvitation marks a pending invitation revoked. Accepted invitations
// cannot be revoked.
func RevokeInvitation(db *gorm.DB, organizationID, invitationID uint) error {
	var invitation models.Invitation
	err := db.Where("id = ? AND organization_id = ?", invitationID, organizationID).
		First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("invitation %d: %w", invitationID, ErrNotFound)
		}
		return err
	}
	if invitation.AcceptedAt != nil {
		return &ConflictError{Message: "invitation has already been accepted"}
	}
	if invitation.RevokedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	return db.Model(&invitation).Update("revoked_at", &now).Error
}

func defaultOrgRoleID(tx *gorm.DB, organizationID uint) (*uint, error) {
	var role models.OrganizationRole
	err := tx.Where("organization_id = ? AND slug = ?", organizationID, models.RoleSlugOrgUser).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role.ID, nil
}

func defaultProjectRoleID(tx *gorm.DB, organizationID uint) (*uint, error) {
	var role models.ProjectRole
	err := tx.Where("organization_id = ? AND slug = ?", organizationID, models.RoleSlugProjectUser).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role.ID, nil
}

// AcceptInvitation consumes an invitation token for the authenticated user.
// The email must match the user's, case-insensitively. Roles referenced by
// the invitation that have since been deleted or belong to another
// organization fall back to the built-in default roles rather than failing
// the acceptance.
func AcceptInvitation(db *gorm.DB, rawToken string, user *models.User) (*models.Invitation, error) {
	var invitation models.Invitation
	err := db.Where("token_hash = ?", hashInvitationToken(rawToken)).First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invitation: %w", ErrNotFound)
		}
		return nil, err
	}
	if invitation.RevokedAt != nil {
		return nil, &ConflictError{Message: "invitation has been revoked"}
	}
	if invitation.AcceptedAt != nil {
		return nil, &ConflictError{Message: "invitation has already been accepted"}
	}
	if !invitation.ExpiresAt.After(time.Now().UTC()) {
		return nil, &ConflictError{Message: "invitation has expired"}
	}
	if !strings.EqualFold(strings.TrimSpace(invitation.Email), strings.TrimSpace(user.Email)) {
		return nil, &ForbiddenError{Message: "invitation was issued for a different email"}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		// Exactly-once: re-check under the transaction before consuming.
		result := tx.Model(&models.Invitation{}).
			Where("id = ? AND accepted_at IS NULL AND revoked_at IS NULL", invitation.ID).
			Update("accepted_at", &now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &ConflictError{Message: "invitation has already been accepted"}
		}
		invitation.AcceptedAt = &now

		orgRoleID := invitation.OrgRoleID
		if orgRoleID != nil {
			var count int64
			if err := tx.Model(&models.OrganizationRole{}).
				Where("id = ? AND organization_id = ?", *orgRoleID, invitation.OrganizationID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				orgRoleID = nil
			}
		}
		if orgRoleID == nil {
			fallback, err := defaultOrgRoleID(tx, invitation.OrganizationID)
			if err != nil {
				return err
			}
			orgRoleID = fallback
		}

		var membership models.OrganizationMembership
		err := tx.Where("organization_id = ? AND user_id = ?", invitation.OrganizationID, user.ID).
			First(&membership).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			membership = models.OrganizationMembership{
				OrganizationID: invitation.OrganizationID,
				UserID:         user.ID,
				RoleID:         orgRoleID,
				IsActive:       true,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case !membership.IsActive:
			updates := map[string]any{"is_active": true}
			if membership.RoleID == nil {
				updates["role_id"] = orgRoleID
			}
			if err := tx.Model(&membership).Updates(updates).Error; err != nil {
				return err
			}
		}

		projectFallback, err := defaultProjectRoleID(tx, invitation.OrganizationID)
		if err != nil {
			return err
		}
		for _, assignment := range invitation.ProjectAssignments {
			var project models.Project
			err := tx.Where("id = ? AND organization_id = ?", assignment.ProjectID, invitation.OrganizationID).
				First(&project).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Project deleted since the invitation was sent; skip.
				continue
			}
			if err != nil {
				return err
			}

			roleID := assignment.RoleID
			if roleID != nil {
				var count int64
				if err := tx.Model(&models.ProjectRole{}).
					Where("id = ? AND organization_id = ?", *roleID, invitation.OrganizationID).
					Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					roleID = nil
				}
			}
			if roleID == nil {
				roleID = projectFallback
			}

			var projectMembership models.ProjectMembership
			err = tx.Where("project_id = ? AND user_id = ?", assignment.ProjectID, user.ID).
				First(&projectMembership).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				projectMembership = models.ProjectMembership{
					OrganizationID: invitation.OrganizationID,
					ProjectID:      assignment.ProjectID,
					UserID:         user.ID,
					RoleID:         roleID,
					IsActive:       true,
				}
				if err := tx.Create(&projectMembership).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			case !projectMembership.IsActive:
				updates := map[string]any{"is_active": true}
				if projectMembership.RoleID == nil {
					updates["role_id"] = roleID
				}
				if err := tx.Model(&projectMembership).Updates(updates).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}
