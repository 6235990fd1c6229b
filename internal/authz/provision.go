package authz

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var builtinOrgRoles = map[string]string{
	models.RoleSlugOrgAdmin: "Organization Admin",
	models.RoleSlugOrgUser:  "Organization User",
}

var builtinProjectRoles = map[string]string{
	models.RoleSlugProjectAdmin: "Project Admin",
	models.RoleSlugProjectUser:  "Project User",
}

// SeedPermissionCatalog inserts any catalog entries missing from the
// permissions table. Concurrent seeding is safe: inserts racing on the unique
// key are dropped.
func SeedPermissionCatalog(db *gorm.DB) error {
	rows := make([]models.Permission, 0, len(Specs))
	for _, spec := range Specs {
		rows = append(rows, models.Permission{
			Key:         spec.Key(),
			Resource:    spec.Resource,
			Action:      spec.Action,
			Description: spec.Description,
		})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func permissionIDsByKey(db *gorm.DB) (map[string]uint, error) {
	var rows []models.Permission
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(rows))
	for _, row := range rows {
		ids[row.Key] = row.ID
	}
	return ids, nil
}

// EnsureDefaultRolesForOrganization seeds the catalog, creates the four
// built-in roles if missing, and resets each built-in role's permission set
// to the static defaults. The reset is a full replace, so stripping baseline
// permissions from a built-in role does not survive the next provisioning
// pass. Safe to call repeatedly and concurrently for the same organization.
func EnsureDefaultRolesForOrganization(db *gorm.DB, organizationID uint) error {
	if err := SeedPermissionCatalog(db); err != nil {
		return fmt.Errorf("seed permission catalog: %w", err)
	}
	permissionIDs, err := permissionIDsByKey(db)
	if err != nil {
		return err
	}

	orgRoleIDs := make(map[string]uint, len(builtinOrgRoles))
	for slug, name := range builtinOrgRoles {
		role := models.OrganizationRole{
			OrganizationID: organizationID,
			Name:           name,
			Slug:           slug,
			IsBuiltin:      true,
		}
		// Races on (organization, slug) are benign: the loser re-reads.
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
			return err
		}
		if role.ID == 0 {
			if err := db.Where("organization_id = ? AND slug = ?", organizationID, slug).
				First(&role).Error; err != nil {
				return err
			}
		}
		orgRoleIDs[slug] = role.ID
	}

	projectRoleIDs := make(map[string]uint, len(builtinProjectRoles))
	for slug, name := range builtinProjectRoles {
		role := models.ProjectRole{
			OrganizationID: organizationID,
			Name:           name,
			Slug:           slug,
			IsBuiltin:      true,
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
			return err
		}
		if role.ID == 0 {
			if err := db.Where("organization_id = ? AND slug = ?", organizationID, slug).
				First(&role).Error; err != nil {
				return err
			}
		}
		projectRoleIDs[slug] = role.ID
	}

	return db.Transaction(func(tx *gorm.DB) error {
		orgRoleKeys := map[string][]string{
			models.RoleSlugOrgAdmin: AllKeys(),
		}
		for slug, keys := range DefaultOrgRoleKeys {
			orgRoleKeys[slug] = keys
		}
		for slug, keys := range orgRoleKeys {
			roleID := orgRoleIDs[slug]
			if err := tx.Where("role_id = ?", roleID).
				Delete(&models.OrganizationRolePermission{}).Error; err != nil {
				return err
			}
			rows := make([]models.OrganizationRolePermission, 0, len(keys))
			for _, key := range keys {
				pid, ok := permissionIDs[key]
				if !ok {
					continue
				}
				rows = append(rows, models.OrganizationRolePermission{
					RoleID:       roleID,
					PermissionID: pid,
					Effect:       models.EffectAllow,
				})
			}
			if len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return err
				}
			}
		}

		for slug, keys := range DefaultProjectRoleKeys {
			roleID := projectRoleIDs[slug]
			if err := tx.Where("role_id = ?", roleID).
				Delete(&models.ProjectRolePermission{}).Error; err != nil {
				return err
			}
			rows := make([]models.ProjectRolePermission, 0, len(keys))
			for _, key := range keys {
				pid, ok := permissionIDs[key]
				if !ok {
					continue
				}
				rows = append(rows, models.ProjectRolePermission{
					RoleID:       roleID,
					PermissionID: pid,
					Effect:       models.EffectAllow,
				})
			}
			if len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetOrgRoleBySlug looks up an organization role by slug within one
// organization.
func GetOrgRoleBySlug(db *gorm.DB, organizationID uint, slug string) (*models.OrganizationRole, error) {
	var role models.OrganizationRole
	err := db.Where("organization_id = ? AND slug = ?", organizationID, slug).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// GetProjectRoleBySlug looks up a project role by slug within one
// organization.
func GetProjectRoleBySlug(db *gorm.DB, organizationID uint, slug string) (*models.ProjectRole, error) {
	var role models.ProjectRole
	err := db.Where("organization_id = ? AND slug = ?", organizationID, slug).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// generateUniqueOrgSlug derives a slug from the name, suffixing a counter
// while the slug is taken.
func generateUniqueOrgSlug(db *gorm.DB, name string) (string, error) {
	base := utils.Slugify(name)
	slug := base
	for counter := 2; ; counter++ {
		var count int64
		if err := db.Model(&models.Organization{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

// CreateOrganizationWithDefaults creates an organization, provisions its
// built-in roles and permission sets, and makes the owning user an
// organization admin member.
func CreateOrganizationWithDefaults(db *gorm.DB, name string, ownerUserID *uint, isPersonal, isBootstrap bool) (*models.Organization, error) {
	slug, err := generateUniqueOrgSlug(db, name)
	if err != nil {
		return nil, err
	}

	org := models.Organization{
		Name:        name,
		Slug:        slug,
		IsPersonal:  isPersonal,
		IsBootstrap: isBootstrap,
		OwnerUserID: ownerUserID,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		if err := EnsureDefaultRolesForOrganization(tx, org.ID); err != nil {
			return err
		}
		if ownerUserID != nil {
			adminRole, err := GetOrgRoleBySlug(tx, org.ID, models.RoleSlugOrgAdmin)
			if err != nil {
				return err
			}
			membership := models.OrganizationMembership{
				OrganizationID: org.ID,
				UserID:         *ownerUserID,
				RoleID:         &adminRole.ID,
				IsActive:       true,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// EnsureBootstrapOrganization migrates a pre-tenancy database: when users
// exist but no organization does, it creates the bootstrap organization and
// enrolls every active user as an organization user. Idempotent; a no-op on
// fresh or already-migrated databases.
func EnsureBootstrapOrganization(db *gorm.DB) error {
	var orgCount int64
	if err := db.Model(&models.Organization{}).Count(&orgCount).Error; err != nil {
		return err
	}
	if orgCount > 0 {
		return nil
	}
	var userIDs []uint
	if err := db.Model(&models.User{}).Where("is_active = ?", true).
		Order("id ASC").Pluck("id", &userIDs).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	org, err := CreateOrganizationWithDefaults(db, "Bootstrap", nil, false, true)
	if err != nil {
		return err
	}
	userRole, err := GetOrgRoleBySlug(db, org.ID, models.RoleSlugOrgUser)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	for _, userID := range userIDs {
		membership := models.OrganizationMembership{
			OrganizationID: org.ID,
			UserID:         userID,
			IsActive:       true,
		}
		if userRole != nil {
			membership.RoleID = &userRole.ID
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&membership).Error; err != nil {
			return err
		}
	}
	slog.Info("Seeded bootstrap organization", "organization_id", org.ID, "members", len(userIDs))
	return nil
}
