package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// RolePermissionItem is one entry of a role's replacement permission set.
type RolePermissionItem struct {
	PermissionKey string        `json:"permission_key"`
	Effect        models.Effect `json:"effect"`
}

var builtinRoleSlugs = map[string]bool{
	models.RoleSlugOrgAdmin:     true,
	models.RoleSlugOrgUser:      true,
	models.RoleSlugProjectAdmin: true,
	models.RoleSlugProjectUser:  true,
}

func normalizeRoleInput(name, slug string) (string, string, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(strings.ToLower(slug))
	if name == "" {
		return "", "", &ValidationError{Message: "role name is required"}
	}
	if slug == "" {
		return "", "", &ValidationError{Message: "role slug is required"}
	}
	if builtinRoleSlugs[slug] {
		return "", "", &ConflictError{Message: fmt.Sprintf("role slug %q is reserved", slug)}
	}
	return name, slug, nil
}

// CreateOrganizationRole creates a custom organization role. Built-in slugs
// are reserved and duplicate slugs within the organization conflict.
func CreateOrganizationRole(db *gorm.DB, organizationID uint, name, slug string) (*models.OrganizationRole, error) {
	name, slug, err := normalizeRoleInput(name, slug)
	if err != nil {
		return nil, err
	}
	var count int64
	if err := db.Model(&models.OrganizationRole{}).
		Where("organization_id = ? AND slug = ?", organizationID, slug).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf("organization role %q already exists", slug)}
	}
	role := models.OrganizationRole{
		OrganizationID: organizationID,
		Name:           name,
		Slug:           slug,
	}
	if err := db.Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateProjectRole creates a custom project role within the organization.
func CreateProjectRole(db *gorm.DB, organizationID uint, name, slug string) (*models.ProjectRole, error) {
	name, slug, err := normalizeRoleInput(name, slug)
	if err != nil {
		return nil, err
	}
	var count int64
	if err := db.Model(&models.ProjectRole{}).
		Where("organization_id = ? AND slug = ?", organizationID, slug).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf("project role %q already exists", slug)}
	}
	role := models.ProjectRole{
		OrganizationID: organizationID,
		Name:           name,
		Slug:           slug,
	}
	if err := db.Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// ListOrganizationRoles returns the organization's roles, built-ins first.
func ListOrganizationRoles(db *gorm.DB, organizationID uint) ([]models.OrganizationRole, error) {
	var roles []models.OrganizationRole
	err := db.Where("organization_id = ?", organizationID).
		Order("is_builtin DESC, id ASC").
		Find(&roles).Error
	return roles, err
}

// ListProjectRoles returns the organization's project roles, built-ins first.
func ListProjectRoles(db *gorm.DB, organizationID uint) ([]models.ProjectRole, error) {
	var roles []models.ProjectRole
	err := db.Where("organization_id = ?", organizationID).
		Order("is_builtin DESC, id ASC").
		Find(&roles).Error
	return roles, err
}

func resolvePermissionItems(db *gorm.DB, items []RolePermissionItem) (map[uint]models.Effect, error) {
	resolved := make(map[uint]models.Effect, len(items))
	for _, item := range items {
		if item.Effect != models.EffectAllow && item.Effect != models.EffectDeny {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid effect %q for %s", item.Effect, item.PermissionKey)}
		}
		var perm models.Permission
		if err := db.Where("key = ?", item.PermissionKey).First(&perm).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ValidationError{Message: fmt.Sprintf("unknown permission key %q", item.PermissionKey)}
			}
			return nil, err
		}
		resolved[perm.ID] = item.Effect
	}
	return resolved, nil
}

// ReplaceOrganizationRolePermissions swaps the role's permission set for the
// given items atomically. Unknown keys reject the whole replacement. Built-in
// roles can be edited, but provisioning resets them on its next pass.
func ReplaceOrganizationRolePermissions(db *gorm.DB, organizationID, roleID uint, items []RolePermissionItem) error {
	var role models.OrganizationRole
	if err := db.Where("id = ? AND organization_id = ?", roleID, organizationID).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("organization role %d: %w", roleID, ErrNotFound)
		}
		return err
	}
	resolved, err := resolvePermissionItems(db, items)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&models.OrganizationRolePermission{}).Error; err != nil {
			return err
		}
		for permissionID, effect := range resolved {
			row := models.OrganizationRolePermission{
				RoleID:       roleID,
				PermissionID: permissionID,
				Effect:       effect,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceProjectRolePermissions is the project-role counterpart of
// ReplaceOrganizationRolePermissions.
func ReplaceProjectRolePermissions(db *gorm.DB, organizationID, roleID uint, items []RolePermissionItem) error {
	var role models.ProjectRole
	if err := db.Where("id = ? AND organization_id = ?", roleID, organizationID).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("project role %d: %w", roleID, ErrNotFound)
		}
		return err
	}
	resolved, err := resolvePermissionItems(db, items)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&models.ProjectRolePermission{}).Error; err != nil {
			return err
		}
		for permissionID, effect := range resolved {
			row := models.ProjectRolePermission{
				RoleID:       roleID,
				PermissionID: permissionID,
				Effect:       effect,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteOrganizationRole deletes a custom organization role. A role still
// referenced by memberships or pending invitations requires a replacement
// role from the same organization; the references are repointed and the role
// removed in one transaction.
func DeleteOrganizationRole(db *gorm.DB, organizationID, roleID uint, replacementRoleID *uint) error {
	var role models.OrganizationRole
	if err := db.Where("id = ? AND organization_id = ?", roleID, organizationID).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("organization role %d: %w", roleID, ErrNotFound)
		}
		return err
	}
	if role.IsBuiltin {
		return &ValidationError{Message: "built-in roles cannot be deleted"}
	}

	var memberCount int64
	if err := db.Model(&models.OrganizationMembership{}).
		Where("role_id = ? AND is_active = ?", roleID, true).Count(&memberCount).Error; err != nil {
		return err
	}
	var inviteCount int64
	if err := db.Model(&models.Invitation{}).
		Where("org_role_id = ? AND accepted_at IS NULL AND revoked_at IS NULL", roleID).
		Count(&inviteCount).Error; err != nil {
		return err
	}

	if memberCount+inviteCount > 0 && replacementRoleID == nil {
		return &ConflictError{Message: fmt.Sprintf(
			"role is referenced by %d memberships and %d pending invitations; a replacement role is required",
			memberCount, inviteCount)}
	}
	if replacementRoleID != nil {
		if *replacementRoleID == roleID {
			return &ValidationError{Message: "replacement role must differ from the deleted role"}
		}
		var replacement models.OrganizationRole
		if err := db.Where("id = ? AND organization_id = ?", *replacementRoleID, organizationID).
			First(&replacement).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Message: "replacement role not found in organization"}
			}
			return err
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if replacementRoleID != nil {
			if err := tx.Model(&models.OrganizationMembership{}).
				Where("role_id = ?", roleID).
				Update("role_id", *replacementRoleID).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Invitation{}).
				Where("org_role_id = ? AND accepted_at IS NULL AND revoked_at IS NULL", roleID).
				Update("org_role_id", *replacementRoleID).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&models.OrganizationRolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&role).Error
	})
}

// DeleteProjectRole deletes a custom project role, repointing project
// memberships and the project assignments embedded in pending invitations to
// the replacement role when one is given.
func DeleteProjectRole(db *gorm.DB, organizationID, roleID uint, replacementRoleID *uint) error {
	var role models.ProjectRole
	if err := db.Where("id = ? AND organization_id = ?", roleID, organizationID).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("project role %d: %w", roleID, ErrNotFound)
		}
		return err
	}
	if role.IsBuiltin {
		return &ValidationError{Message: "built-in roles cannot be deleted"}
	}

	var memberCount int64
	if err := db.Model(&models.ProjectMembership{}).
		Where("role_id = ? AND is_active = ?", roleID, true).Count(&memberCount).Error; err != nil {
		return err
	}
	var pending []models.Invitation
	if err := db.Where("organization_id = ? AND accepted_at IS NULL AND revoked_at IS NULL", organizationID).
		Find(&pending).Error; err != nil {
		return err
	}
	referencing := make([]*models.Invitation, 0)
	for i := range pending {
		for _, assignment := range pending[i].ProjectAssignments {
			if assignment.RoleID != nil && *assignment.RoleID == roleID {
				referencing = append(referencing, &pending[i])
				break
			}
		}
	}

	if memberCount+int64(len(referencing)) > 0 && replacementRoleID == nil {
		return &ConflictError{Message: fmt.Sprintf(
			"role is referenced by %d memberships and %d pending invitations; a replacement role is required",
			memberCount, len(referencing))}
	}
	if replacementRoleID != nil {
		if *replacementRoleID == roleID {
			return &ValidationError{Message: "replacement role must differ from the deleted role"}
		}
		var replacement models.ProjectRole
		if err := db.Where("id = ? AND organization_id = ?", *replacementRoleID, organizationID).
			First(&replacement).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Message: "replacement role not found in organization"}
			}
			return err
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if replacementRoleID != nil {
			if err := tx.Model(&models.ProjectMembership{}).
				Where("role_id = ?", roleID).
				Update("role_id", *replacementRoleID).Error; err != nil {
				return err
			}
			for _, inv := range referencing {
				for i := range inv.ProjectAssignments {
					if inv.ProjectAssignments[i].RoleID != nil && *inv.ProjectAssignments[i].RoleID == roleID {
						inv.ProjectAssignments[i].RoleID = replacementRoleID
					}
				}
				// The json serializer only runs for struct updates; a raw
				// column Update would hand the driver the slice unserialized.
				if err := tx.Model(inv).Select("project_assignments").Updates(inv).Error; err != nil {
					return err
				}
			}
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&models.ProjectRolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&role).Error
	})
}
