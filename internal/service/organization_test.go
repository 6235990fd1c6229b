package service

import (
	"errors"
	"testing"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

func TestDeleteOrganization_CascadesOwnedRows(t *testing.T) {
	f := setupOrgFixture(t)
	perm := seedPermission(t, f.db, "runs.execute")

	suite := models.BenchmarkSuite{OrganizationID: f.org.ID, ProjectID: f.project.ID, Name: "Smoke"}
	if err := f.db.Create(&suite).Error; err != nil {
		t.Fatalf("failed to create suite: %v", err)
	}
	query := models.Query{SuiteID: suite.ID, Prompt: "What is 2+2?"}
	if err := f.db.Create(&query).Error; err != nil {
		t.Fatalf("failed to create query: %v", err)
	}
	agent := models.AgentConfig{OrganizationID: f.org.ID, ProjectID: f.project.ID, Name: "gpt", Model: "gpt-test"}
	if err := f.db.Create(&agent).Error; err != nil {
		t.Fatalf("failed to create agent config: %v", err)
	}
	run := models.Run{
		OrganizationID: f.org.ID, ProjectID: f.project.ID,
		SuiteID: suite.ID, AgentConfigID: agent.ID, Label: "baseline",
	}
	if err := f.db.Create(&run).Error; err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	result := models.Result{
		OrganizationID: f.org.ID, ProjectID: f.project.ID,
		RunID: run.ID, QueryID: query.ID, ResponseText: "4",
	}
	if err := f.db.Create(&result).Error; err != nil {
		t.Fatalf("failed to create result: %v", err)
	}
	comparison := models.Comparison{
		OrganizationID: f.org.ID, ProjectID: f.project.ID,
		Name: "baseline vs baseline", RunIDs: []uint{run.ID},
	}
	if err := f.db.Create(&comparison).Error; err != nil {
		t.Fatalf("failed to create comparison: %v", err)
	}
	notification := models.AppNotification{OrganizationID: f.org.ID, UserID: f.member.ID, Title: "Run finished"}
	if err := f.db.Create(&notification).Error; err != nil {
		t.Fatalf("failed to create notification: %v", err)
	}
	grant := models.UserPermissionGrant{
		OrganizationID: f.org.ID, UserID: f.member.ID,
		PermissionID: perm.ID, Effect: models.EffectAllow,
	}
	if err := f.db.Create(&grant).Error; err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}
	invitation := models.Invitation{
		OrganizationID: f.org.ID, Email: "new@example.com",
		TokenHash: "hash", ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := f.db.Create(&invitation).Error; err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}
	if err := f.db.Create(&models.ProjectMembership{
		OrganizationID: f.org.ID, ProjectID: f.project.ID,
		UserID: f.member.ID, RoleID: &f.projectUser.ID, IsActive: true,
	}).Error; err != nil {
		t.Fatalf("failed to create project membership: %v", err)
	}
	auditRow := models.AuditLog{OrganizationID: &f.org.ID, Action: "create_organization", Resource: "organization"}
	if err := f.db.Create(&auditRow).Error; err != nil {
		t.Fatalf("failed to create audit log: %v", err)
	}

	if err := DeleteOrganization(f.db, f.org.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	orgScoped := map[string]any{
		"suites":        &models.BenchmarkSuite{},
		"agents":        &models.AgentConfig{},
		"runs":          &models.Run{},
		"results":       &models.Result{},
		"comparisons":   &models.Comparison{},
		"notifications": &models.AppNotification{},
		"grants":        &models.UserPermissionGrant{},
		"invitations":   &models.Invitation{},
		"org members":   &models.OrganizationMembership{},
		"proj members":  &models.ProjectMembership{},
		"org roles":     &models.OrganizationRole{},
		"project roles": &models.ProjectRole{},
		"projects":      &models.Project{},
	}
	for name, model := range orgScoped {
		var count int64
		if err := f.db.Model(model).Where("organization_id = ?", f.org.ID).Count(&count).Error; err != nil {
			t.Fatalf("failed to count %s: %v", name, err)
		}
		if count != 0 {
			t.Errorf("%s left behind after delete: %d", name, count)
		}
	}

	var queryCount int64
	if err := f.db.Model(&models.Query{}).Where("suite_id = ?", suite.ID).Count(&queryCount).Error; err != nil {
		t.Fatalf("failed to count queries: %v", err)
	}
	if queryCount != 0 {
		t.Errorf("queries left behind after delete: %d", queryCount)
	}

	var org models.Organization
	if err := f.db.First(&org, f.org.ID).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("organization still present after delete: %v", err)
	}

	// The audit trail survives with the organization reference cleared.
	var kept models.AuditLog
	if err := f.db.First(&kept, auditRow.ID).Error; err != nil {
		t.Fatalf("audit log row deleted: %v", err)
	}
	if kept.OrganizationID != nil {
		t.Errorf("audit log organization_id = %d, want nil", *kept.OrganizationID)
	}
}

func TestDeleteOrganization_PersonalProtected(t *testing.T) {
	db := setupTestDB(t)

	personal := models.Organization{Name: "Me", Slug: "me", IsPersonal: true}
	if err := db.Create(&personal).Error; err != nil {
		t.Fatalf("failed to create personal org: %v", err)
	}

	err := DeleteOrganization(db, personal.ID)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Errorf("personal org delete: expected conflict, got %v", err)
	}

	if err := DeleteOrganization(db, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown org delete: expected not found, got %v", err)
	}
}
