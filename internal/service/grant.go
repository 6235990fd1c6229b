package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// GrantInput is the request to create an ad-hoc permission grant.
type GrantInput struct {
	UserID        uint          `json:"user_id"`
	PermissionKey string        `json:"permission_key"`
	Effect        models.Effect `json:"effect"`
	ProjectID     *uint         `json:"project_id,omitempty"`
	ResourceType  *string       `json:"resource_type,omitempty"`
	ResourceID    *uint         `json:"resource_id,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

// CreateGrant records a direct permission grant for a user inside the
// organization. The target must be an active member, the permission key must
// exist, a project scope must belong to the organization, and resource type
// and id go together or not at all.
func CreateGrant(db *gorm.DB, organizationID uint, grantedBy *uint, input GrantInput) (*models.UserPermissionGrant, error) {
	if input.Effect == "" {
		input.Effect = models.EffectAllow
	}
	if input.Effect != models.EffectAllow && input.Effect != models.EffectDeny {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid effect %q", input.Effect)}
	}
	if (input.ResourceType == nil) != (input.ResourceID == nil) {
		return nil, &ValidationError{Message: "resource_type and resource_id must be provided together"}
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now().UTC()) {
		return nil, &ValidationError{Message: "expires_at must be in the future"}
	}

	var membership models.OrganizationMembership
	err := db.Where("organization_id = ? AND user_id = ? AND is_active = ?",
		organizationID, input.UserID, true).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: "user is not an active member of the organization"}
		}
		return nil, err
	}

	var perm models.Permission
	if err := db.Where("key = ?", input.PermissionKey).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown permission key %q", input.PermissionKey)}
		}
		return nil, err
	}

	if input.ProjectID != nil {
		var count int64
		if err := db.Model(&models.Project{}).
			Where("id = ? AND organization_id = ?", *input.ProjectID, organizationID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fmt.Errorf("project %d in organization %d: %w", *input.ProjectID, organizationID, ErrNotFound)
		}
	}

	grant := models.UserPermissionGrant{
		OrganizationID:  organizationID,
		ProjectID:       input.ProjectID,
		UserID:          input.UserID,
		PermissionID:    perm.ID,
		Effect:          input.Effect,
		ResourceType:    input.ResourceType,
		ResourceID:      input.ResourceID,
		GrantedByUserID: grantedBy,
		ExpiresAt:       input.ExpiresAt,
	}
	if err := db.Create(&grant).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

// ListGrants returns the organization's grants, optionally narrowed to one
// user or one project. Expired grants are listed; they are inert, not hidden.
func ListGrants(db *gorm.DB, organizationID uint, userID, projectID *uint) ([]models.UserPermissionGrant, error) {
	query := db.Where("organization_id = ?", organizationID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	var grants []models.UserPermissionGrant
	err := query.Order("id ASC").Find(&grants).Error
	return grants, err
}

// DeleteGrant removes a grant by id within the organization.
func DeleteGrant(db *gorm.DB, organizationID, grantID uint) error {
	result := db.Where("id = ? AND organization_id = ?", grantID, organizationID).
		Delete(&models.UserPermissionGrant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("grant %d: %w", grantID, ErrNotFound)
	}
	return nil
}
