package authz

import (
	"errors"
	"fmt"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/axiom-eval/axiom/internal/workspace"
	"gorm.io/gorm"
)

// Resource names a concrete record a grant can be scoped to.
type Resource struct {
	Type string
	ID   uint
}

var knownKeys = func() map[string]struct{} {
	keys := make(map[string]struct{}, len(Specs))
	for _, spec := range Specs {
		keys[spec.Key()] = struct{}{}
	}
	return keys
}()

// HasPermission decides whether the workspace's user may perform the
// operation named by key, optionally against one specific resource.
//
// Organization admins pass unconditionally. Keys outside the catalog fail
// closed. Otherwise effects are collected from the user's organization role,
// project role, and any live ad-hoc grants; a single deny outweighs any
// number of allows, and no effect at all means no access.
func HasPermission(db *gorm.DB, ws *workspace.Context, key string, resource *Resource) (bool, error) {
	if ws.IsOrgAdmin {
		return true, nil
	}
	if _, ok := knownKeys[key]; !ok {
		return false, nil
	}

	var perm models.Permission
	if err := db.Where("key = ?", key).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	var effects []models.Effect

	if ws.OrganizationMembership != nil && ws.OrganizationMembership.RoleID != nil {
		var rows []models.OrganizationRolePermission
		err := db.Where("role_id = ? AND permission_id = ?",
			*ws.OrganizationMembership.RoleID, perm.ID).Find(&rows).Error
		if err != nil {
			return false, err
		}
		for _, row := range rows {
			effects = append(effects, row.Effect)
		}
	}

	if ws.ProjectMembership != nil && ws.ProjectMembership.RoleID != nil {
		var rows []models.ProjectRolePermission
		err := db.Where("role_id = ? AND permission_id = ?",
			*ws.ProjectMembership.RoleID, perm.ID).Find(&rows).Error
		if err != nil {
			return false, err
		}
		for _, row := range rows {
			effects = append(effects, row.Effect)
		}
	}

	grantEffects, err := grantEffectsFor(db, ws, perm.ID, resource)
	if err != nil {
		return false, err
	}
	effects = append(effects, grantEffects...)

	allowed := false
	for _, effect := range effects {
		if effect == models.EffectDeny {
			return false, nil
		}
		if effect == models.EffectAllow {
			allowed = true
		}
	}
	return allowed, nil
}

func grantEffectsFor(db *gorm.DB, ws *workspace.Context, permissionID uint, resource *Resource) ([]models.Effect, error) {
	query := db.Where("organization_id = ? AND user_id = ? AND permission_id = ?",
		ws.OrganizationID, ws.User.ID, permissionID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC())
	if ws.ProjectID != nil {
		query = query.Where("project_id IS NULL OR project_id = ?", *ws.ProjectID)
	} else {
		query = query.Where("project_id IS NULL")
	}

	var grants []models.UserPermissionGrant
	if err := query.Find(&grants).Error; err != nil {
		return nil, err
	}

	var effects []models.Effect
	for _, grant := range grants {
		if grant.ResourceType == nil && grant.ResourceID == nil {
			effects = append(effects, grant.Effect)
			continue
		}
		if resource == nil || grant.ResourceType == nil || grant.ResourceID == nil {
			continue
		}
		if *grant.ResourceType == resource.Type && *grant.ResourceID == resource.ID {
			effects = append(effects, grant.Effect)
		}
	}
	return effects, nil
}

// RequirePermission is HasPermission with a forbidden error instead of a
// boolean, for handlers that gate an operation outright.
func RequirePermission(db *gorm.DB, ws *workspace.Context, key string, resource *Resource) error {
	ok, err := HasPermission(db, ws, key, resource)
	if err != nil {
		return err
	}
	if !ok {
		return &service.ForbiddenError{Message: fmt.Sprintf("missing permission: %s", key)}
	}
	return nil
}

// CanAccessProjectResource decides read access to a project-scoped record the
// tenancy filter already surfaced, either because it lives in the current
// project or because it is organization-visible. Both cases come down to the
// read permission; organization-visible records do not get a laxer check.
func CanAccessProjectResource(db *gorm.DB, ws *workspace.Context, readKey string, resource *Resource) (bool, error) {
	return HasPermission(db, ws, readKey, resource)
}
