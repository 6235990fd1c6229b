package workspace

import (
	"errors"
	"testing"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
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
		&models.OrganizationMembership{},
		&models.ProjectMembership{},
		&models.UserPermissionGrant{},
		&models.BenchmarkSuite{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

type resolverFixture struct {
	db       *gorm.DB
	user     *models.User
	org      *models.Organization
	project  *models.Project
	orgRole  *models.OrganizationRole
	projRole *models.ProjectRole
}

// setupResolverFixture creates a user who is an active org_user member of one
// organization with one project membership.
func setupResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	db := setupTestDB(t)

	user := &models.User{FullName: "Member", Email: "member@example.com", PasswordHash: "x", IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	org := &models.Organization{Name: "Acme", Slug: "acme"}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}

	orgRole := &models.OrganizationRole{OrganizationID: org.ID, Name: "Organization User", Slug: models.RoleSlugOrgUser, IsBuiltin: true}
	if err := db.Create(orgRole).Error; err != nil {
		t.Fatalf("failed to create org role: %v", err)
	}
	projRole := &models.ProjectRole{OrganizationID: org.ID, Name: "Project User", Slug: models.RoleSlugProjectUser, IsBuiltin: true}
	if err := db.Create(projRole).Error; err != nil {
		t.Fatalf("failed to create project role: %v", err)
	}

	project := &models.Project{OrganizationID: org.ID, Name: "Alpha"}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	if err := db.Create(&models.OrganizationMembership{
		OrganizationID: org.ID, UserID: user.ID, RoleID: &orgRole.ID, IsActive: true,
	}).Error; err != nil {
		t.Fatalf("failed to create org membership: %v", err)
	}
	if err := db.Create(&models.ProjectMembership{
		OrganizationID: org.ID, ProjectID: project.ID, UserID: user.ID,
		RoleID: &projRole.ID, IsActive: true,
	}).Error; err != nil {
		t.Fatalf("failed to create project membership: %v", err)
	}

	return &resolverFixture{db: db, user: user, org: org, project: project, orgRole: orgRole, projRole: projRole}
}

func TestResolveOrganizationContext_ExplicitHint(t *testing.T) {
	f := setupResolverFixture(t)

	ws, err := ResolveOrganizationContext(f.db, f.user, "1", false)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ws.OrganizationID != f.org.ID {
		t.Errorf("organization = %d, want %d", ws.OrganizationID, f.org.ID)
	}
	if ws.IsOrgAdmin {
		t.Error("org_user resolved as admin")
	}
	if ws.OrganizationMembership == nil {
		t.Error("membership not attached")
	}
}

func TestResolveOrganizationContext_DefaultsOnReadOnly(t *testing.T) {
	f := setupResolverFixture(t)

	// No hint, non-mutating: the smallest active membership fills in.
	ws, err := ResolveOrganizationContext(f.db, f.user, "", false)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ws.OrganizationID != f.org.ID {
		t.Errorf("organization = %d, want %d", ws.OrganizationID, f.org.ID)
	}
}

func TestResolveOrganizationContext_MutatingRequiresHint(t *testing.T) {
	f := setupResolverFixture(t)

	_, err := ResolveOrganizationContext(f.db, f.user, "", true)
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for missing hint, got %v", err)
	}
}

func TestResolveOrganizationContext_InvalidHint(t *testing.T) {
	f := setupResolverFixture(t)

	for _, hint := range []string{"abc", "-1", "0", "1.5"} {
		_, err := ResolveOrganizationContext(f.db, f.user, hint, false)
		var verr *service.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("hint %q: expected validation error, got %v", hint, err)
		}
	}
}

func TestResolveOrganizationContext_NonMember(t *testing.T) {
	f := setupResolverFixture(t)

	outsider := &models.User{FullName: "Outsider", Email: "out@example.com", PasswordHash: "x", IsActive: true}
	if err := f.db.Create(outsider).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	_, err := ResolveOrganizationContext(f.db, outsider, "1", false)
	var ferr *service.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected forbidden error for non-member, got %v", err)
	}
}

func TestResolveOrganizationContext_BackfillsMissingRole(t *testing.T) {
	f := setupResolverFixture(t)

	// Simulate a legacy membership without a role.
	if err := f.db.Model(&models.OrganizationMembership{}).
		Where("user_id = ?", f.user.ID).
		Update("role_id", nil).Error; err != nil {
		t.Fatalf("failed to clear role: %v", err)
	}

	ws, err := ResolveOrganizationContext(f.db, f.user, "1", false)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ws.OrganizationMembership.RoleID == nil {
		t.Fatal("role not backfilled in memory")
	}
	if *ws.OrganizationMembership.RoleID != f.orgRole.ID {
		t.Errorf("backfilled role = %d, want org_user (%d)", *ws.OrganizationMembership.RoleID, f.orgRole.ID)
	}

	// Backfill persisted.
	var mem models.OrganizationMembership
	if err := f.db.Where("user_id = ?", f.user.ID).First(&mem).Error; err != nil {
		t.Fatalf("failed to reload membership: %v", err)
	}
	if mem.RoleID == nil || *mem.RoleID != f.orgRole.ID {
		t.Error("role backfill not persisted")
	}
}

func TestResolveProjectContext_Member(t *testing.T) {
	f := setupResolverFixture(t)

	orgCtx, err := ResolveOrganizationContext(f.db, f.user, "1", false)
	if err != nil {
		t.Fatalf("org resolve failed: %v", err)
	}

	ws, err := ResolveProjectContext(f.db, orgCtx, "1", false)
	if err != nil {
		t.Fatalf("project resolve failed: %v", err)
	}
	if ws.ProjectID == nil || *ws.ProjectID != f.project.ID {
		t.Errorf("project = %v, want %d", ws.ProjectID, f.project.ID)
	}
	if ws.ProjectMembership == nil {
		t.Error("project membership not attached")
	}
}

func TestResolveProjectContext_DefaultsOnReadOnly(t *testing.T) {
	f := setupResolverFixture(t)

	orgCtx, _ := ResolveOrganizationContext(f.db, f.user, "1", false)
	ws, err := ResolveProjectContext(f.db, orgCtx, "", false)
	if err != nil {
		t.Fatalf("project resolve failed: %v", err)
	}
	if ws.ProjectID == nil || *ws.ProjectID != f.project.ID {
		t.Errorf("default project = %v, want %d", ws.ProjectID, f.project.ID)
	}
}

func TestResolveProjectContext_WrongOrganization(t *testing.T) {
	f := setupResolverFixture(t)

	other := models.Organization{Name: "Other", Slug: "other"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}
	foreign := models.Project{OrganizationID: other.ID, Name: "Foreign"}
	if err := f.db.Create(&foreign).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	orgCtx, _ := ResolveOrganizationContext(f.db, f.user, "1", false)
	_, err := ResolveProjectContext(f.db, orgCtx, "2", false)
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not-found for foreign project, got %v", err)
	}
}

func TestResolveProjectContext_NonMemberForbidden(t *testing.T) {
	f := setupResolverFixture(t)

	second := models.Project{OrganizationID: f.org.ID, Name: "Beta"}
	if err := f.db.Create(&second).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	orgCtx, _ := ResolveOrganizationContext(f.db, f.user, "1", false)
	_, err := ResolveProjectContext(f.db, orgCtx, "2", false)
	var ferr *service.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected forbidden for non-member project, got %v", err)
	}
}

func TestResolveProjectContext_GrantHolderTolerated(t *testing.T) {
	f := setupResolverFixture(t)

	second := models.Project{OrganizationID: f.org.ID, Name: "Beta"}
	if err := f.db.Create(&second).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	perm := models.Permission{Key: "suites.read", Resource: "suites", Action: "read"}
	if err := f.db.Create(&perm).Error; err != nil {
		t.Fatalf("failed to create permission: %v", err)
	}
	if err := f.db.Create(&models.UserPermissionGrant{
		OrganizationID: f.org.ID,
		ProjectID:      &second.ID,
		UserID:         f.user.ID,
		PermissionID:   perm.ID,
		Effect:         models.EffectAllow,
	}).Error; err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	orgCtx, _ := ResolveOrganizationContext(f.db, f.user, "1", false)
	ws, err := ResolveProjectContext(f.db, orgCtx, "2", false)
	if err != nil {
		t.Fatalf("grant holder should resolve the project: %v", err)
	}
	if ws.ProjectMembership != nil {
		t.Error("no membership should be attached for a grant holder")
	}
}

func TestResolveProjectContext_ExpiredGrantNotTolerated(t *testing.T) {
	f := setupResolverFixture(t)

	second := models.Project{OrganizationID: f.org.ID, Name: "Beta"}
	if err := f.db.Create(&second).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	perm := models.Permission{Key: "suites.read", Resource: "suites", Action: "read"}
	if err := f.db.Create(&perm).Error; err != nil {
		t.Fatalf("failed to create permission: %v", err)
	}
	expired := time.Now().UTC().Add(-time.Hour)
	if err := f.db.Create(&models.UserPermissionGrant{
		OrganizationID: f.org.ID,
		ProjectID:      &second.ID,
		UserID:         f.user.ID,
		PermissionID:   perm.ID,
		Effect:         models.EffectAllow,
		ExpiresAt:      &expired,
	}).Error; err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	orgCtx, _ := ResolveOrganizationContext(f.db, f.user, "1", false)
	_, err := ResolveProjectContext(f.db, orgCtx, "2", false)
	var ferr *service.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("expired grant should not open the project, got %v", err)
	}
}

func TestResolveProjectContext_OrgAdminWithoutMembership(t *testing.T) {
	f := setupResolverFixture(t)

	adminRole := models.OrganizationRole{OrganizationID: f.org.ID, Name: "Organization Admin", Slug: models.RoleSlugOrgAdmin, IsBuiltin: true}
	if err := f.db.Create(&adminRole).Error; err != nil {
		t.Fatalf("failed to create admin role: %v", err)
	}
	if err := f.db.Model(&models.OrganizationMembership{}).
		Where("user_id = ?", f.user.ID).
		Update("role_id", adminRole.ID).Error; err != nil {
		t.Fatalf("failed to promote user: %v", err)
	}

	second := models.Project{OrganizationID: f.org.ID, Name: "Beta"}
	if err := f.db.Create(&second).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	orgCtx, err := ResolveOrganizationContext(f.db, f.user, "1", false)
	if err != nil {
		t.Fatalf("org resolve failed: %v", err)
	}
	if !orgCtx.IsOrgAdmin {
		t.Fatal("user should be org admin")
	}

	ws, err := ResolveProjectContext(f.db, orgCtx, "2", false)
	if err != nil {
		t.Fatalf("org admin should resolve any project: %v", err)
	}
	if ws.ProjectMembership != nil {
		t.Error("admin has no membership in the project")
	}
}

func TestResolveProjectContext_NoMembershipsNoHint(t *testing.T) {
	f := setupResolverFixture(t)

	// A plain member with no project memberships has nothing to default to,
	// even on a read-only request.
	loner := &models.User{FullName: "Loner", Email: "loner@example.com", PasswordHash: "x", IsActive: true}
	if err := f.db.Create(loner).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if err := f.db.Create(&models.OrganizationMembership{
		OrganizationID: f.org.ID, UserID: loner.ID, RoleID: &f.orgRole.ID, IsActive: true,
	}).Error; err != nil {
		t.Fatalf("failed to create org membership: %v", err)
	}

	orgCtx, err := ResolveOrganizationContext(f.db, loner, "1", false)
	if err != nil {
		t.Fatalf("org resolve failed: %v", err)
	}

	_, err = ResolveProjectContext(f.db, orgCtx, "", false)
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error without a resolvable project, got %v", err)
	}
}
