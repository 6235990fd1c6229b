package authz

import (
	"testing"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/workspace"
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
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	if err := SeedPermissionCatalog(db); err != nil {
		t.Fatalf("failed to seed permission catalog: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{FullName: "Test User", Email: email, PasswordHash: "x", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

// fixture is one provisioned organization with a project and a non-admin
// member holding the built-in org_user and project_user roles.
type fixture struct {
	db      *gorm.DB
	org     *models.Organization
	project *models.Project
	user    *models.User
	orgMem  *models.OrganizationMembership
	projMem *models.ProjectMembership
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)

	owner := createTestUser(t, db, "owner@example.com")
	org, err := CreateOrganizationWithDefaults(db, "Acme", &owner.ID, false, false)
	if err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	project := models.Project{OrganizationID: org.ID, Name: "Alpha"}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	user := createTestUser(t, db, "member@example.com")

	orgRole, err := GetOrgRoleBySlug(db, org.ID, models.RoleSlugOrgUser)
	if err != nil {
		t.Fatalf("failed to load org_user role: %v", err)
	}
	orgMem := models.OrganizationMembership{
		OrganizationID: org.ID, UserID: user.ID, RoleID: &orgRole.ID, IsActive: true,
	}
	if err := db.Create(&orgMem).Error; err != nil {
		t.Fatalf("failed to create org membership: %v", err)
	}

	projRole, err := GetProjectRoleBySlug(db, org.ID, models.RoleSlugProjectUser)
	if err != nil {
		t.Fatalf("failed to load project_user role: %v", err)
	}
	projMem := models.ProjectMembership{
		OrganizationID: org.ID, ProjectID: project.ID, UserID: user.ID,
		RoleID: &projRole.ID, IsActive: true,
	}
	if err := db.Create(&projMem).Error; err != nil {
		t.Fatalf("failed to create project membership: %v", err)
	}

	return &fixture{db: db, org: org, project: &project, user: user, orgMem: &orgMem, projMem: &projMem}
}

// ws builds a workspace context for the fixture's member, optionally scoped
// to the fixture project.
func (f *fixture) ws(withProject bool) *workspace.Context {
	ctx := &workspace.Context{
		User:                   f.user,
		OrganizationID:         f.org.ID,
		OrganizationMembership: f.orgMem,
	}
	if withProject {
		ctx.ProjectID = &f.project.ID
		ctx.ProjectMembership = f.projMem
	}
	return ctx
}

func (f *fixture) permissionID(t *testing.T, key string) uint {
	t.Helper()
	var perm models.Permission
	if err := f.db.Where("key = ?", key).First(&perm).Error; err != nil {
		t.Fatalf("permission %s not seeded: %v", key, err)
	}
	return perm.ID
}

func mustHavePermission(t *testing.T, db *gorm.DB, ws *workspace.Context, key string, resource *Resource, want bool) {
	t.Helper()
	got, err := HasPermission(db, ws, key, resource)
	if err != nil {
		t.Fatalf("HasPermission(%s) failed: %v", key, err)
	}
	if got != want {
		t.Errorf("HasPermission(%s) = %v, want %v", key, got, want)
	}
}

func TestHasPermission_UnknownKeyFailsClosed(t *testing.T) {
	f := setupFixture(t)

	ws := f.ws(false)
	ws.IsOrgAdmin = false
	mustHavePermission(t, f.db, ws, "nonexistent.key", nil, false)

	// Even for admins via the explicit non-admin path the key is rejected:
	// fail-closed beats fail-open for typoed keys.
	mustHavePermission(t, f.db, ws, "suites.frobnicate", nil, false)
}

func TestHasPermission_OrgAdminBypass(t *testing.T) {
	f := setupFixture(t)

	ws := f.ws(false)
	ws.IsOrgAdmin = true
	mustHavePermission(t, f.db, ws, "organizations.delete", nil, true)
	mustHavePermission(t, f.db, ws, "suites.delete", nil, true)
}

func TestHasPermission_OrgRoleAllow(t *testing.T) {
	f := setupFixture(t)
	ws := f.ws(false)

	// org_user carries organizations.read by default
	mustHavePermission(t, f.db, ws, "organizations.read", nil, true)
	// but nothing grants organizations.delete
	mustHavePermission(t, f.db, ws, "organizations.delete", nil, false)
}

func TestHasPermission_ProjectRoleAllow(t *testing.T) {
	f := setupFixture(t)

	// suites.write comes from the project role, so it needs project context
	mustHavePermission(t, f.db, f.ws(true), "suites.write", nil, true)
	mustHavePermission(t, f.db, f.ws(false), "suites.write", nil, false)

	// project_user never gets suites.delete
	mustHavePermission(t, f.db, f.ws(true), "suites.delete", nil, false)
}

func TestHasPermission_DenyGrantWinsOverRoleAllow(t *testing.T) {
	f := setupFixture(t)

	grant := models.UserPermissionGrant{
		OrganizationID: f.org.ID,
		UserID:         f.user.ID,
		PermissionID:   f.permissionID(t, "suites.write"),
		Effect:         models.EffectDeny,
	}
	if err := f.db.Create(&grant).Error; err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	// The project role still allows suites.write, but the single deny wins.
	mustHavePermission(t, f.db, f.ws(true), "suites.write", nil, false)
}

func TestHasPermission_ExpiredGrantIsInert(t *testing.T) {
	f := setupFixture(t)

	expired := time.Now().UTC().Add(-time.Hour)
	grant := models.UserPermissionGrant{
		OrganizationID: f.org.ID,
		UserID:         f.user.ID,
		PermissionID:   f.permissionID(t, "suites.delete"),
		Effect:         models.EffectAllow,
		ExpiresAt:      &expired,
	}
	if err := f.db.Create(&grant).Error; err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	mustHavePermission(t, f.db, f.ws(true), "suites.delete", nil, false)

	// An unexpired grant with the same shape works.
	future := time.Now().UTC().Add(time.Hour)
	if err := f.db.Model(&grant).Update("expires_at", &future).Error; err != nil {
		t.Fatalf("failed to update grant: %v", err)
	}
	mustHavePermission(t, f.db, f.ws(true), "suites.delete", nil, true)
}

func TestHasPermission_ResourceScopedGrant(t *testing.T) {
	f := setupFixture(t)

	resourceType := "suite"
	resourceID := uint(42)
	grant := models.UserPermissionGrant{
		OrganizationID: f.org.ID,
		UserID:         f.user.ID,
		PermissionID:   f.permissionID(t, "suites.delete"),
		Effect:         models.EffectAllow,
		ResourceType:   &resourceType,
		ResourceID:     &resourceID,
	}
	if err := f.db.Create(&grant).Error; err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	// Applies to the named resource only.
	mustHavePermission(t, f.db, f.ws(true), "suites.delete", &Resource{Type: "suite", ID: 42}, true)
	mustHavePermission(t, f.db, f.ws(true), "suites.delete", &Resource{Type: "suite", ID: 43}, false)
	mustHavePermission(t, f.db, f.ws(true), "suites.delete", &Resource{Type: "run", ID: 42}, false)
	// A check with no resource in hand ignores resource-scoped grants.
	mustHavePermission(t, f.db, f.ws(true), "suites.delete", nil, false)
}

func TestHasPermission_ProjectScopedGrant(t *testing.T) {
	f := setupFixture(t)

	other := models.Project{OrganizationID: f.org.ID, Name: "Beta"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	grant := models.UserPermissionGrant{
		OrganizationID: f.org.ID,
		ProjectID:      &other.ID,
		UserID:         f.user.ID,
		PermissionID:   f.permissionID(t, "suites.delete"),
		Effect:         models.EffectAllow,
	}
	if err := f.db.Create(&grant).Error; err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	// Grant is scoped to the other project: inert in the fixture project and
	// in organization-only context.
	mustHavePermission(t, f.db, f.ws(true), "suites.delete", nil, false)
	mustHavePermission(t, f.db, f.ws(false), "suites.delete", nil, false)

	// Effective when the workspace targets the granted project.
	ws := f.ws(false)
	ws.ProjectID = &other.ID
	mustHavePermission(t, f.db, ws, "suites.delete", nil, true)
}

func TestRequirePermission_ReturnsForbidden(t *testing.T) {
	f := setupFixture(t)

	err := RequirePermission(f.db, f.ws(false), "organizations.delete", nil)
	if err == nil {
		t.Fatal("expected forbidden error, got nil")
	}

	if err := RequirePermission(f.db, f.ws(false), "organizations.read", nil); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
}

func TestCanAccessProjectResource_SharedResource(t *testing.T) {
	f := setupFixture(t)

	allowed, err := CanAccessProjectResource(f.db, f.ws(true), "suites.read", &Resource{Type: "suite", ID: 7})
	if err != nil {
		t.Fatalf("CanAccessProjectResource failed: %v", err)
	}
	if !allowed {
		t.Error("project_user should read suites visible in its workspace")
	}
}

func TestHasPermission_ProjectAdminManagesProjectRoles(t *testing.T) {
	f := setupFixture(t)

	// project_user has no say over project roles
	mustHavePermission(t, f.db, f.ws(true), "projects.manage_roles", nil, false)

	adminRole, err := GetProjectRoleBySlug(f.db, f.org.ID, models.RoleSlugProjectAdmin)
	if err != nil {
		t.Fatalf("failed to load project_admin: %v", err)
	}
	if err := f.db.Model(f.projMem).Update("role_id", adminRole.ID).Error; err != nil {
		t.Fatalf("failed to promote member: %v", err)
	}
	f.projMem.RoleID = &adminRole.ID

	mustHavePermission(t, f.db, f.ws(true), "projects.manage_roles", nil, true)
}
