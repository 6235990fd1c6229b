package workspace

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"gorm.io/gorm"
)

// Tenancy hint header names. The same values may arrive as query parameters
// (org_id / organization_id and project_id).
const (
	OrgHeader     = "X-Org-Id"
	ProjectHeader = "X-Project-Id"
)

// parsePositiveID validates a tenancy hint. Hints must be positive integers;
// a missing hint on a mutating request is an error rather than a guess, so
// the request never silently acts on the wrong tenant.
func parsePositiveID(field, raw string) (uint, error) {
	if raw == "" {
		return 0, &service.ValidationError{Message: field + " is required"}
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Message: field + " must be a positive integer"}
	}
	return uint(id), nil
}

// defaultOrganizationID picks the smallest active organization membership for
// the user, or 0 when there is none.
func defaultOrganizationID(db *gorm.DB, userID uint) (uint, error) {
	var orgID uint
	err := db.Model(&models.OrganizationMembership{}).
		Select("organization_id").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("organization_id ASC").
		Limit(1).
		Scan(&orgID).Error
	return orgID, err
}

// defaultProjectID picks the smallest active project membership within the
// organization, or, for organization admins only, the smallest project in
// the organization even without a membership.
func defaultProjectID(db *gorm.DB, organizationID, userID uint, isOrgAdmin bool) (uint, error) {
	var projectID uint
	err := db.Model(&models.ProjectMembership{}).
		Select("project_id").
		Where("organization_id = ? AND user_id = ? AND is_active = ?", organizationID, userID, true).
		Order("project_id ASC").
		Limit(1).
		Scan(&projectID).Error
	if err != nil {
		return 0, err
	}
	if projectID != 0 || !isOrgAdmin {
		return projectID, nil
	}
	err = db.Model(&models.Project{}).
		Select("id").
		Where("organization_id = ?", organizationID).
		Order("id ASC").
		Limit(1).
		Scan(&projectID).Error
	return projectID, err
}

// ResolveOrganizationContext establishes the organization half of the
// workspace context. An empty orgHint is filled from the default-organization
// heuristic on non-mutating requests only.
func ResolveOrganizationContext(db *gorm.DB, user *models.User, orgHint string, mutating bool) (*Context, error) {
	if orgHint == "" && !mutating {
		defaultID, err := defaultOrganizationID(db, user.ID)
		if err != nil {
			return nil, err
		}
		if defaultID != 0 {
			orgHint = strconv.FormatUint(uint64(defaultID), 10)
		}
	}

	orgID, err := parsePositiveID(OrgHeader, orgHint)
	if err != nil {
		return nil, err
	}

	var membership models.OrganizationMembership
	err = db.Where("organization_id = ? AND user_id = ? AND is_active = ?", orgID, user.ID, true).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &service.ForbiddenError{Message: "you are not a member of this organization"}
	}
	if err != nil {
		return nil, err
	}

	// Legacy memberships may predate roles; backfill the default role once.
	if membership.RoleID == nil {
		var defaultRole models.OrganizationRole
		err = db.Where("organization_id = ? AND slug = ?", orgID, models.RoleSlugOrgUser).
			First(&defaultRole).Error
		if err == nil {
			membership.RoleID = &defaultRole.ID
			if err := db.Model(&membership).Update("role_id", defaultRole.ID).Error; err != nil {
				return nil, err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	isOrgAdmin := false
	if membership.RoleID != nil {
		var role models.OrganizationRole
		if err := db.First(&role, *membership.RoleID).Error; err == nil {
			isOrgAdmin = role.Slug == models.RoleSlugOrgAdmin
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return &Context{
		User:                   user,
		OrganizationID:         orgID,
		OrganizationMembership: &membership,
		IsOrgAdmin:             isOrgAdmin,
	}, nil
}

// ResolveProjectContext narrows an organization context to one project. A
// missing project membership is tolerated when the user is an organization
// admin or holds any unexpired grant scoped to this organization and either
// organization-wide or scoped to this project; the permission evaluator makes
// the final call.
func ResolveProjectContext(db *gorm.DB, orgCtx *Context, projectHint string, mutating bool) (*Context, error) {
	if projectHint == "" && !mutating {
		defaultID, err := defaultProjectID(db, orgCtx.OrganizationID, orgCtx.User.ID, orgCtx.IsOrgAdmin)
		if err != nil {
			return nil, err
		}
		if defaultID != 0 {
			projectHint = strconv.FormatUint(uint64(defaultID), 10)
		}
	}

	projectID, err := parsePositiveID(ProjectHeader, projectHint)
	if err != nil {
		return nil, err
	}

	var project models.Project
	err = db.First(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && project.OrganizationID != orgCtx.OrganizationID) {
		return nil, fmt.Errorf("project not found in organization: %w", service.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var membership *models.ProjectMembership
	var found models.ProjectMembership
	err = db.Where(
		"organization_id = ? AND project_id = ? AND user_id = ? AND is_active = ?",
		orgCtx.OrganizationID, projectID, orgCtx.User.ID, true,
	).First(&found).Error
	switch {
	case err == nil:
		membership = &found
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if membership != nil && membership.RoleID == nil {
		var defaultRole models.ProjectRole
		err = db.Where("organization_id = ? AND slug = ?", orgCtx.OrganizationID, models.RoleSlugProjectUser).
			First(&defaultRole).Error
		if err == nil {
			membership.RoleID = &defaultRole.ID
			if err := db.Model(membership).Update("role_id", defaultRole.ID).Error; err != nil {
				return nil, err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if membership == nil && !orgCtx.IsOrgAdmin {
		hasGrant, err := hasQualifyingGrant(db, orgCtx.OrganizationID, orgCtx.User.ID, projectID)
		if err != nil {
			return nil, err
		}
		if !hasGrant {
			return nil, &service.ForbiddenError{Message: "you are not a member of this project"}
		}
	}

	return &Context{
		User:                   orgCtx.User,
		OrganizationID:         orgCtx.OrganizationID,
		ProjectID:              &projectID,
		OrganizationMembership: orgCtx.OrganizationMembership,
		ProjectMembership:      membership,
		IsOrgAdmin:             orgCtx.IsOrgAdmin,
	}, nil
}

// hasQualifyingGrant reports whether the user holds any unexpired grant for
// this organization that is organization-wide or scoped to the project.
func hasQualifyingGrant(db *gorm.DB, organizationID, userID, projectID uint) (bool, error) {
	var count int64
	err := db.Model(&models.UserPermissionGrant{}).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Where("project_id IS NULL OR project_id = ?", projectID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC()).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}
