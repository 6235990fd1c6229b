package service

import (
	"errors"
	"fmt"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// DeleteOrganization removes an organization together with every row it
// owns: projects, roles and their permission sets, memberships, invitations,
// grants and the tenant-scoped domain records. Personal organizations cannot
// be deleted. Audit log rows survive with their organization reference
// cleared.
func DeleteOrganization(db *gorm.DB, organizationID uint) error {
	var org models.Organization
	if err := db.First(&org, organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("organization %d: %w", organizationID, ErrNotFound)
		}
		return err
	}
	if org.IsPersonal {
		return &ConflictError{Message: "personal organizations cannot be deleted"}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		// Queries hang off suites, not the organization.
		suiteIDs := tx.Model(&models.BenchmarkSuite{}).Select("id").
			Where("organization_id = ?", organizationID)
		if err := tx.Where("suite_id IN (?)", suiteIDs).Delete(&models.Query{}).Error; err != nil {
			return err
		}

		// Children before their referents, so the deletes also pass with
		// foreign key enforcement on.
		orgScoped := []any{
			&models.Result{},
			&models.Run{},
			&models.Comparison{},
			&models.BenchmarkSuite{},
			&models.AgentConfig{},
			&models.AppNotification{},
			&models.UserPermissionGrant{},
			&models.Invitation{},
			&models.ProjectMembership{},
			&models.OrganizationMembership{},
		}
		for _, model := range orgScoped {
			if err := tx.Where("organization_id = ?", organizationID).Delete(model).Error; err != nil {
				return err
			}
		}

		projectRoleIDs := tx.Model(&models.ProjectRole{}).Select("id").
			Where("organization_id = ?", organizationID)
		if err := tx.Where("role_id IN (?)", projectRoleIDs).Delete(&models.ProjectRolePermission{}).Error; err != nil {
			return err
		}
		orgRoleIDs := tx.Model(&models.OrganizationRole{}).Select("id").
			Where("organization_id = ?", organizationID)
		if err := tx.Where("role_id IN (?)", orgRoleIDs).Delete(&models.OrganizationRolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", organizationID).Delete(&models.ProjectRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", organizationID).Delete(&models.OrganizationRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", organizationID).Delete(&models.Project{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.AuditLog{}).Where("organization_id = ?", organizationID).
			Update("organization_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&org).Error
	})
}
