package service

import (
	"errors"
	"testing"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
)

func TestCreateInvitation(t *testing.T) {
	f := setupOrgFixture(t)

	inv, token, err := CreateInvitation(f.db, f.org.ID, &f.owner.ID, InvitationInput{
		Email: "New@Example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if token == "" {
		t.Fatal("no raw token returned")
	}
	if inv.Email != "new@example.com" {
		t.Errorf("email = %q, want lowercased", inv.Email)
	}
	if inv.TokenHash == token {
		t.Error("raw token stored instead of its hash")
	}
	if !inv.ExpiresAt.After(time.Now()) {
		t.Error("invitation created already expired")
	}

	// A second pending invitation for the same address conflicts.
	_, _, err = CreateInvitation(f.db, f.org.ID, &f.owner.ID, InvitationInput{Email: "new@example.com"})
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Errorf("duplicate pending: expected conflict, got %v", err)
	}
}

func TestCreateInvitation_Validation(t *testing.T) {
	f := setupOrgFixture(t)

	_, _, err := CreateInvitation(f.db, f.org.ID, nil, InvitationInput{Email: "not-an-email"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("bad email: expected validation error, got %v", err)
	}

	badRole := uint(9999)
	_, _, err = CreateInvitation(f.db, f.org.ID, nil, InvitationInput{
		Email:     "a@example.com",
		OrgRoleID: &badRole,
	})
	if !errors.As(err, &verr) {
		t.Errorf("unknown role: expected validation error, got %v", err)
	}

	_, _, err = CreateInvitation(f.db, f.org.ID, nil, InvitationInput{
		Email:              "a@example.com",
		ProjectAssignments: []models.ProjectAssignment{{ProjectID: 9999}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown project: expected not found, got %v", err)
	}

	past := time.Now().Add(-time.Hour)
	_, _, err = CreateInvitation(f.db, f.org.ID, nil, InvitationInput{
		Email:     "a@example.com",
		ExpiresAt: &past,
	})
	if !errors.As(err, &verr) {
		t.Errorf("past expiry: expected validation error, got %v", err)
	}
}

func TestAcceptInvitation(t *testing.T) {
	f := setupOrgFixture(t)
	invitee := newUser(t, f.db, "invitee@example.com")

	_, token, err := CreateInvitation(f.db, f.org.ID, &f.owner.ID, InvitationInput{
		Email:     "invitee@example.com",
		OrgRoleID: &f.orgUser.ID,
		ProjectAssignments: []models.ProjectAssignment{
			{ProjectID: f.project.ID, RoleID: &f.projectUser.ID},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	accepted, err := AcceptInvitation(f.db, token, invitee)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.AcceptedAt == nil {
		t.Error("accepted_at not set")
	}

	var orgMem models.OrganizationMembership
	if err := f.db.Where("organization_id = ? AND user_id = ?", f.org.ID, invitee.ID).
		First(&orgMem).Error; err != nil {
		t.Fatalf("org membership missing: %v", err)
	}
	if !orgMem.IsActive || orgMem.RoleID == nil || *orgMem.RoleID != f.orgUser.ID {
		t.Errorf("unexpected org membership: active=%v role=%v", orgMem.IsActive, orgMem.RoleID)
	}

	var projMem models.ProjectMembership
	if err := f.db.Where("project_id = ? AND user_id = ?", f.project.ID, invitee.ID).
		First(&projMem).Error; err != nil {
		t.Fatalf("project membership missing: %v", err)
	}
	if projMem.RoleID == nil || *projMem.RoleID != f.projectUser.ID {
		t.Errorf("project role = %v, want %d", projMem.RoleID, f.projectUser.ID)
	}

	// Acceptance is exactly-once.
	_, err = AcceptInvitation(f.db, token, invitee)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Errorf("second accept: expected conflict, got %v", err)
	}
}

func TestAcceptInvitation_EmailMismatch(t *testing.T) {
	f := setupOrgFixture(t)
	stranger := newUser(t, f.db, "stranger@example.com")

	_, token, err := CreateInvitation(f.db, f.org.ID, nil, InvitationInput{Email: "invitee@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = AcceptInvitation(f.db, token, stranger)
	var ferr *ForbiddenError
	if !errors.As(err, &ferr) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestAcceptInvitation_RevokedAndExpired(t *testing.T) {
	f := setupOrgFixture(t)
	invitee := newUser(t, f.db, "invitee@example.com")

	inv, token, err := CreateInvitation(f.db, f.org.ID, nil, InvitationInput{Email: "invitee@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := RevokeInvitation(f.db, f.org.ID, inv.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	_, err = AcceptInvitation(f.db, token, invitee)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Errorf("revoked: expected conflict, got %v", err)
	}

	// Revoking again is a no-op.
	if err := RevokeInvitation(f.db, f.org.ID, inv.ID); err != nil {
		t.Errorf("re-revoke: %v", err)
	}

	// Expired invitations cannot be accepted either.
	future := time.Now().Add(time.Hour)
	inv2, token2, err := CreateInvitation(f.db, f.org.ID, nil, InvitationInput{
		Email:     "invitee@example.com",
		ExpiresAt: &future,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	past := time.Now().Add(-time.Minute).UTC()
	if err := f.db.Model(inv2).Update("expires_at", past).Error; err != nil {
		t.Fatalf("failed to backdate: %v", err)
	}
	_, err = AcceptInvitation(f.db, token2, invitee)
	if !errors.As(err, &cerr) {
		t.Errorf("expired: expected conflict, got %v", err)
	}

	_, err = AcceptInvitation(f.db, "no-such-token", invitee)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("bad token: expected not found, got %v", err)
	}
}

func TestAcceptInvitation_DeletedRoleFallsBack(t *testing.T) {
	f := setupOrgFixture(t)
	invitee := newUser(t, f.db, "invitee@example.com")

	role, err := CreateOrganizationRole(f.db, f.org.ID, "Temp", "temp")
	if err != nil {
		t.Fatalf("create role failed: %v", err)
	}
	projRole, err := CreateProjectRole(f.db, f.org.ID, "Temp Runner", "temp-runner")
	if err != nil {
		t.Fatalf("create project role failed: %v", err)
	}

	roleID, projRoleID := role.ID, projRole.ID
	_, token, err := CreateInvitation(f.db, f.org.ID, nil, InvitationInput{
		Email:     "invitee@example.com",
		OrgRoleID: &roleID,
		ProjectAssignments: []models.ProjectAssignment{
			{ProjectID: f.project.ID, RoleID: &projRoleID},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Delete the roles out from under the pending invitation, bypassing the
	// repointing DeleteOrganizationRole would do.
	if err := f.db.Delete(role).Error; err != nil {
		t.Fatalf("delete role failed: %v", err)
	}
	if err := f.db.Delete(projRole).Error; err != nil {
		t.Fatalf("delete project role failed: %v", err)
	}

	if _, err := AcceptInvitation(f.db, token, invitee); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	var orgMem models.OrganizationMembership
	if err := f.db.Where("organization_id = ? AND user_id = ?", f.org.ID, invitee.ID).
		First(&orgMem).Error; err != nil {
		t.Fatalf("org membership missing: %v", err)
	}
	if orgMem.RoleID == nil || *orgMem.RoleID != f.orgUser.ID {
		t.Errorf("org role = %v, want default %d", orgMem.RoleID, f.orgUser.ID)
	}

	var projMem models.ProjectMembership
	if err := f.db.Where("project_id = ? AND user_id = ?", f.project.ID, invitee.ID).
		First(&projMem).Error; err != nil {
		t.Fatalf("project membership missing: %v", err)
	}
	if projMem.RoleID == nil || *projMem.RoleID != f.projectUser.ID {
		t.Errorf("project role = %v, want default %d", projMem.RoleID, f.projectUser.ID)
	}
}

func TestAcceptInvitation_DeletedProjectSkipped(t *testing.T) {
	f := setupOrgFixture(t)
	invitee := newUser(t, f.db, "invitee@example.com")

	doomed := models.Project{OrganizationID: f.org.ID, Name: "Doomed", CreatedByUserID: &f.owner.ID}
	if err := f.db.Create(&doomed).Error; err != nil {
		t.Fatalf("create project failed: %v", err)
	}

	_, token, err := CreateInvitation(f.db, f.org.ID, nil, InvitationInput{
		Email: "invitee@example.com",
		ProjectAssignments: []models.ProjectAssignment{
			{ProjectID: doomed.ID},
			{ProjectID: f.project.ID},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.db.Delete(&doomed).Error; err != nil {
		t.Fatalf("delete project failed: %v", err)
	}

	if _, err := AcceptInvitation(f.db, token, invitee); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	var count int64
	f.db.Model(&models.ProjectMembership{}).Where("user_id = ?", invitee.ID).Count(&count)
	if count != 1 {
		t.Errorf("project memberships = %d, want 1 (deleted project skipped)", count)
	}
}
