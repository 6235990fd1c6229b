package service

import (
	"testing"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Project{},
		&models.Permission{},
		&models.OrganizationRole{},
		&models.ProjectRole{},
		&models.OrganizationRolePermission{},
		&models.ProjectRolePermission{},
		&models.OrganizationMembership{},
		&models.ProjectMembership{},
		&models.UserPermissionGrant{},
		&models.Invitation{},
		&models.BenchmarkSuite{},
		&models.Query{},
		&models.AgentConfig{},
		&models.Run{},
		&models.Result{},
		&models.Comparison{},
		&models.AppNotification{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// orgFixture is one organization with built-in roles, a project, an admin
// owner, and a plain member.
type orgFixture struct {
	db           *gorm.DB
	org          *models.Organization
	project      *models.Project
	owner        *models.User
	member       *models.User
	orgAdmin     *models.OrganizationRole
	orgUser      *models.OrganizationRole
	projectAdmin *models.ProjectRole
	projectUser  *models.ProjectRole
}

func newUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{FullName: "Test User", Email: email, PasswordHash: "x", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return &user
}

func seedPermission(t *testing.T, db *gorm.DB, key string) *models.Permission {
	t.Helper()
	perm := models.Permission{Key: key, Resource: key, Action: "x"}
	if err := db.Create(&perm).Error; err != nil {
		t.Fatalf("failed to seed permission %s: %v", key, err)
	}
	return &perm
}

func setupOrgFixture(t *testing.T) *orgFixture {
	t.Helper()
	db := setupTestDB(t)

	org := &models.Organization{Name: "Acme", Slug: "acme"}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}

	f := &orgFixture{db: db, org: org}
	f.orgAdmin = &models.OrganizationRole{OrganizationID: org.ID, Name: "Organization Admin", Slug: models.RoleSlugOrgAdmin, IsBuiltin: true}
	f.orgUser = &models.OrganizationRole{OrganizationID: org.ID, Name: "Organization User", Slug: models.RoleSlugOrgUser, IsBuiltin: true}
	for _, role := range []*models.OrganizationRole{f.orgAdmin, f.orgUser} {
		if err := db.Create(role).Error; err != nil {
			t.Fatalf("failed to create org role %s: %v", role.Slug, err)
		}
	}
	f.projectAdmin = &models.ProjectRole{OrganizationID: org.ID, Name: "Project Admin", Slug: models.RoleSlugProjectAdmin, IsBuiltin: true}
	f.projectUser = &models.ProjectRole{OrganizationID: org.ID, Name: "Project User", Slug: models.RoleSlugProjectUser, IsBuiltin: true}
	for _, role := range []*models.ProjectRole{f.projectAdmin, f.projectUser} {
		if err := db.Create(role).Error; err != nil {
			t.Fatalf("failed to create project role %s: %v", role.Slug, err)
		}
	}

	f.project = &models.Project{OrganizationID: org.ID, Name: "Alpha"}
	if err := db.Create(f.project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	f.owner = newUser(t, db, "owner@example.com")
	if err := db.Create(&models.OrganizationMembership{
		OrganizationID: org.ID, UserID: f.owner.ID, RoleID: &f.orgAdmin.ID, IsActive: true,
	}).Error; err != nil {
		t.Fatalf("failed to create owner membership: %v", err)
	}

	f.member = newUser(t, db, "member@example.com")
	if err := db.Create(&models.OrganizationMembership{
		OrganizationID: org.ID, UserID: f.member.ID, RoleID: &f.orgUser.ID, IsActive: true,
	}).Error; err != nil {
		t.Fatalf("failed to create member membership: %v", err)
	}

	return f
}
