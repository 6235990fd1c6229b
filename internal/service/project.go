package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// ProjectInput is the payload for creating or updating a project.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateProject creates a project in the organization and makes the creating
// user its project admin.
func CreateProject(db *gorm.DB, organizationID, creatorUserID uint, input ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Message: "project name is required"}
	}

	var count int64
	if err := db.Model(&models.Project{}).
		Where("organization_id = ? AND name = ?", organizationID, name).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf("project %q already exists", name)}
	}

	project := models.Project{
		OrganizationID:  organizationID,
		Name:            name,
		Description:     input.Description,
		CreatedByUserID: &creatorUserID,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		var adminRole models.ProjectRole
		err := tx.Where("organization_id = ? AND slug = ?", organizationID, models.RoleSlugProjectAdmin).
			First(&adminRole).Error
		var roleID *uint
		switch {
		case err == nil:
			roleID = &adminRole.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		membership := models.ProjectMembership{
			OrganizationID: organizationID,
			ProjectID:      project.ID,
			UserID:         creatorUserID,
			RoleID:         roleID,
			IsActive:       true,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects returns the organization's projects. A non-nil forUserID
// narrows the listing to projects the user holds an active membership in
// (org admins pass nil and see everything). Archived projects are included
// only when requested.
func ListProjects(db *gorm.DB, organizationID uint, forUserID *uint, includeArchived bool) ([]models.Project, error) {
	query := db.Where("projects.organization_id = ?", organizationID)
	if forUserID != nil {
		query = query.
			Joins("JOIN project_memberships ON project_memberships.project_id = projects.id").
			Where("project_memberships.user_id = ? AND project_memberships.is_active = ?", *forUserID, true)
	}
	if !includeArchived {
		query = query.Where("projects.is_archived = ?", false)
	}
	var projects []models.Project
	err := query.Order("projects.id ASC").Find(&projects).Error
	return projects, err
}

// GetProject fetches one project within the organization.
func GetProject(db *gorm.DB, organizationID, projectID uint) (*models.Project, error) {
	var project models.Project
	err := db.Where("id = ? AND organization_id = ?", projectID, organizationID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
		}
		return nil, err
	}
	return &project, nil
}

// UpdateProject changes a project's name or description.
func UpdateProject(db *gorm.DB, organizationID, projectID uint, input ProjectInput) (*models.Project, error) {
	project, err := GetProject(db, organizationID, projectID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" && name != project.Name {
		var count int64
		if err := db.Model(&models.Project{}).
			Where("organization_id = ? AND name = ? AND id <> ?", organizationID, name, projectID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, &ConflictError{Message: fmt.Sprintf("project %q already exists", name)}
		}
		updates["name"] = name
	}
	if input.Description != project.Description {
		updates["description"] = input.Description
	}
	if len(updates) > 0 {
		if err := db.Model(project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return project, nil
}

// SetProjectArchived archives or unarchives a project. Archived projects stay
// readable but drop out of default listings.
func SetProjectArchived(db *gorm.DB, organizationID, projectID uint, archived bool) (*models.Project, error) {
	project, err := GetProject(db, organizationID, projectID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(project).Update("is_archived", archived).Error; err != nil {
		return nil, err
	}
	return project, nil
}
