package service

import (
	"errors"
	"fmt"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// AddOrganizationMember enrolls a user in the organization. A nil role falls
// back to the built-in default role. Re-adding an inactive member reactivates
// the existing membership; an active duplicate conflicts.
func AddOrganizationMember(db *gorm.DB, organizationID, userID uint, roleID *uint) (*models.OrganizationMembership, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	if roleID != nil {
		var count int64
		if err := db.Model(&models.OrganizationRole{}).
			Where("id = ? AND organization_id = ?", *roleID, organizationID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, &ValidationError{Message: "role not found in organization"}
		}
	} else {
		fallback, err := defaultOrgRoleID(db, organizationID)
		if err != nil {
			return nil, err
		}
		roleID = fallback
	}

	var membership models.OrganizationMembership
	err := db.Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&membership).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		membership = models.OrganizationMembership{
			OrganizationID: organizationID,
			UserID:         userID,
			RoleID:         roleID,
			IsActive:       true,
		}
		if err := db.Create(&membership).Error; err != nil {
			return nil, err
		}
		return &membership, nil
	case err != nil:
		return nil, err
	case membership.IsActive:
		return nil, &ConflictError{Message: "user is already a member of the organization"}
	default:
		updates := map[string]any{"is_active": true, "role_id": roleID}
		if err := db.Model(&membership).Updates(updates).Error; err != nil {
			return nil, err
		}
		membership.IsActive = true
		membership.RoleID = roleID
		return &membership, nil
	}
}

// ListOrganizationMembers returns the organization's memberships with role
// and user preloaded.
func ListOrganizationMembers(db *gorm.DB, organizationID uint) ([]models.OrganizationMembership, error) {
	var memberships []models.OrganizationMembership
	err := db.Preload("User").Preload("Role").
		Where("organization_id = ?", organizationID).
		Order("id ASC").Find(&memberships).Error
	return memberships, err
}

// UpdateOrganizationMemberRole changes an active member's organization role.
func UpdateOrganizationMemberRole(db *gorm.DB, organizationID, userID, roleID uint) error {
	var count int64
	if err := db.Model(&models.OrganizationRole{}).
		Where("id = ? AND organization_id = ?", roleID, organizationID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &ValidationError{Message: "role not found in organization"}
	}
	result := db.Model(&models.OrganizationMembership{}).
		Where("organization_id = ? AND user_id = ? AND is_active = ?", organizationID, userID, true).
		Update("role_id", roleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("membership for user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// RemoveOrganizationMember deactivates the user's organization membership and
// every project membership they hold inside it. History is kept; nothing is
// deleted.
func RemoveOrganizationMember(db *gorm.DB, organizationID, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrganizationMembership{}).
			Where("organization_id = ? AND user_id = ? AND is_active = ?", organizationID, userID, true).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("membership for user %d: %w", userID, ErrNotFound)
		}
		return tx.Model(&models.ProjectMembership{}).
			Where("organization_id = ? AND user_id = ?", organizationID, userID).
			Update("is_active", false).Error
	})
}

// AddProjectMember enrolls an active organization member in one of the
// organization's projects.
func AddProjectMember(db *gorm.DB, organizationID, projectID, userID uint, roleID *uint) (*models.ProjectMembership, error) {
	var project models.Project
	err := db.Where("id = ? AND organization_id = ?", projectID, organizationID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project %d in organization %d: %w", projectID, organizationID, ErrNotFound)
		}
		return nil, err
	}
	var orgMemberCount int64
	if err := db.Model(&models.OrganizationMembership{}).
		Where("organization_id = ? AND user_id = ? AND is_active = ?", organizationID, userID, true).
		Count(&orgMemberCount).Error; err != nil {
		return nil, err
	}
	if orgMemberCount == 0 {
		return nil, &ValidationError{Message: "user is not an active member of the organization"}
	}
	if roleID != nil {
		var count int64
		if err := db.Model(&models.ProjectRole{}).
			Where("id = ? AND organization_id = ?", *roleID, organizationID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, &ValidationError{Message: "role not found in organization"}
		}
	} else {
		fallback, err := defaultProjectRoleID(db, organizationID)
		if err != nil {
			return nil, err
		}
		roleID = fallback
	}

	var membership models.ProjectMembership
	err = db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&membership).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		membership = models.ProjectMembership{
			OrganizationID: organizationID,
			ProjectID:      projectID,
			UserID:         userID,
			RoleID:         roleID,
			IsActive:       true,
		}
		if err := db.Create(&membership).Error; err != nil {
			return nil, err
		}
		return &membership, nil
	case err != nil:
		return nil, err
	case membership.IsActive:
		return nil, &ConflictError{Message: "user is already a member of the project"}
	default:
		updates := map[string]any{"is_active": true, "role_id": roleID}
		if err := db.Model(&membership).Updates(updates).Error; err != nil {
			return nil, err
		}
		membership.IsActive = true
		membership.RoleID = roleID
		return &membership, nil
	}
}

// ListProjectMembers returns the project's memberships with role and user
// preloaded.
func ListProjectMembers(db *gorm.DB, organizationID, projectID uint) ([]models.ProjectMembership, error) {
	var memberships []models.ProjectMembership
	err := db.Preload("User").Preload("Role").
		Where("organization_id = ? AND project_id = ?", organizationID, projectID).
		Order("id ASC").Find(&memberships).Error
	return memberships, err
}

// UpdateProjectMemberRole changes an active project member's role.
func UpdateProjectMemberRole(db *gorm.DB, organizationID, projectID, userID, roleID uint) error {
	var count int64
	if err := db.Model(&models.ProjectRole{}).
		Where("id = ? AND organization_id = ?", roleID, organizationID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &ValidationError{Message: "role not found in organization"}
	}
	result := db.Model(&models.ProjectMembership{}).
		Where("project_id = ? AND user_id = ? AND is_active = ?", projectID, userID, true).
		Update("role_id", roleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("membership for user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// RemoveProjectMember deactivates the user's project membership.
func RemoveProjectMember(db *gorm.DB, organizationID, projectID, userID uint) error {
	result := db.Model(&models.ProjectMembership{}).
		Where("organization_id = ? AND project_id = ? AND user_id = ? AND is_active = ?",
			organizationID, projectID, userID, true).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("membership for user %d: %w", userID, ErrNotFound)
	}
	return nil
}
