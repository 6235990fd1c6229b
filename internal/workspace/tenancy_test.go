package workspace

import (
	"testing"

	"github.com/axiom-eval/axiom/internal/models"
)

func TestApplyTenancyFilter_ScopesToProjectAndSharedRows(t *testing.T) {
	f := setupResolverFixture(t)

	otherProject := models.Project{OrganizationID: f.org.ID, Name: "Beta"}
	if err := f.db.Create(&otherProject).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	otherOrg := models.Organization{Name: "Other", Slug: "other"}
	if err := f.db.Create(&otherOrg).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}

	suites := []models.BenchmarkSuite{
		{OrganizationID: f.org.ID, ProjectID: f.project.ID, Name: "mine", VisibilityScope: models.VisibilityProject},
		{OrganizationID: f.org.ID, ProjectID: otherProject.ID, Name: "other-private", VisibilityScope: models.VisibilityProject},
		{OrganizationID: f.org.ID, ProjectID: otherProject.ID, Name: "other-shared", VisibilityScope: models.VisibilityOrganization},
		{OrganizationID: otherOrg.ID, ProjectID: 99, Name: "foreign-shared", VisibilityScope: models.VisibilityOrganization},
	}
	for i := range suites {
		if err := f.db.Create(&suites[i]).Error; err != nil {
			t.Fatalf("failed to create suite %q: %v", suites[i].Name, err)
		}
	}

	ws := &Context{User: f.user, OrganizationID: f.org.ID, ProjectID: &f.project.ID}

	var visible []models.BenchmarkSuite
	err := ApplyTenancyFilter(f.db, &models.BenchmarkSuite{}, ws).
		Order("id ASC").Find(&visible).Error
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	got := make(map[string]bool, len(visible))
	for _, s := range visible {
		got[s.Name] = true
	}
	if !got["mine"] {
		t.Error("own project's suite filtered out")
	}
	if !got["other-shared"] {
		t.Error("organization-shared suite from another project filtered out")
	}
	if got["other-private"] {
		t.Error("another project's private suite leaked")
	}
	if got["foreign-shared"] {
		t.Error("another organization's suite leaked despite org-wide visibility")
	}
}

func TestApplyTenancyFilter_NoProjectContext(t *testing.T) {
	f := setupResolverFixture(t)

	if err := f.db.Create(&models.BenchmarkSuite{
		OrganizationID: f.org.ID, ProjectID: f.project.ID, Name: "s1",
		VisibilityScope: models.VisibilityProject,
	}).Error; err != nil {
		t.Fatalf("failed to create suite: %v", err)
	}

	// Without a project in context only the organization clause applies.
	ws := &Context{User: f.user, OrganizationID: f.org.ID}
	var visible []models.BenchmarkSuite
	err := ApplyTenancyFilter(f.db, &models.BenchmarkSuite{}, ws).Find(&visible).Error
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(visible) != 1 {
		t.Errorf("visible suites = %d, want 1", len(visible))
	}
}

func TestStampTenancyFields(t *testing.T) {
	f := setupResolverFixture(t)

	ws := &Context{User: f.user, OrganizationID: f.org.ID, ProjectID: &f.project.ID}
	suite := models.BenchmarkSuite{Name: "stamped"}
	StampTenancyFields(&suite, ws)

	if suite.OrganizationID != f.org.ID {
		t.Errorf("organization_id = %d, want %d", suite.OrganizationID, f.org.ID)
	}
	if suite.ProjectID != f.project.ID {
		t.Errorf("project_id = %d, want %d", suite.ProjectID, f.project.ID)
	}
	if suite.CreatedByUserID == nil || *suite.CreatedByUserID != f.user.ID {
		t.Errorf("created_by_user_id = %v, want %d", suite.CreatedByUserID, f.user.ID)
	}
}

func TestStampTenancyFields_NoProject(t *testing.T) {
	f := setupResolverFixture(t)

	ws := &Context{User: f.user, OrganizationID: f.org.ID}
	suite := models.BenchmarkSuite{Name: "org-only"}
	StampTenancyFields(&suite, ws)

	if suite.OrganizationID != f.org.ID {
		t.Errorf("organization_id = %d, want %d", suite.OrganizationID, f.org.ID)
	}
	if suite.ProjectID != 0 {
		t.Errorf("project_id = %d, want unset", suite.ProjectID)
	}
}
