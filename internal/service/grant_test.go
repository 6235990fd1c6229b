package service

import (
	"errors"
	"testing"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
)

func TestCreateGrant(t *testing.T) {
	f := setupOrgFixture(t)
	seedPermission(t, f.db, "suites.delete")

	grant, err := CreateGrant(f.db, f.org.ID, &f.owner.ID, GrantInput{
		UserID:        f.member.ID,
		PermissionKey: "suites.delete",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if grant.Effect != models.EffectAllow {
		t.Errorf("effect = %q, want default allow", grant.Effect)
	}
	if grant.GrantedByUserID == nil || *grant.GrantedByUserID != f.owner.ID {
		t.Error("granted_by not recorded")
	}
}

func TestCreateGrant_Validation(t *testing.T) {
	f := setupOrgFixture(t)
	seedPermission(t, f.db, "suites.delete")

	var verr *ValidationError

	_, err := CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: f.member.ID, PermissionKey: "suites.delete", Effect: "maybe",
	})
	if !errors.As(err, &verr) {
		t.Errorf("bad effect: expected validation error, got %v", err)
	}

	resType := "suite"
	_, err = CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: f.member.ID, PermissionKey: "suites.delete", ResourceType: &resType,
	})
	if !errors.As(err, &verr) {
		t.Errorf("half resource pair: expected validation error, got %v", err)
	}

	past := time.Now().Add(-time.Hour)
	_, err = CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: f.member.ID, PermissionKey: "suites.delete", ExpiresAt: &past,
	})
	if !errors.As(err, &verr) {
		t.Errorf("past expiry: expected validation error, got %v", err)
	}

	outsider := newUser(t, f.db, "outsider@example.com")
	_, err = CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: outsider.ID, PermissionKey: "suites.delete",
	})
	if !errors.As(err, &verr) {
		t.Errorf("non-member: expected validation error, got %v", err)
	}

	_, err = CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: f.member.ID, PermissionKey: "no.such.key",
	})
	if !errors.As(err, &verr) {
		t.Errorf("unknown key: expected validation error, got %v", err)
	}

	foreignProject := uint(9999)
	_, err = CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: f.member.ID, PermissionKey: "suites.delete", ProjectID: &foreignProject,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign project: expected not found, got %v", err)
	}
}

func TestListGrants_Filters(t *testing.T) {
	f := setupOrgFixture(t)
	seedPermission(t, f.db, "suites.delete")

	if _, err := CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: f.member.ID, PermissionKey: "suites.delete",
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: f.owner.ID, PermissionKey: "suites.delete", ProjectID: &f.project.ID,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	all, err := ListGrants(f.db, f.org.ID, nil, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all grants = %d, want 2", len(all))
	}

	byUser, err := ListGrants(f.db, f.org.ID, &f.member.ID, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byUser) != 1 || byUser[0].UserID != f.member.ID {
		t.Errorf("user filter returned %d grants", len(byUser))
	}

	byProject, err := ListGrants(f.db, f.org.ID, nil, &f.project.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byProject) != 1 || byProject[0].UserID != f.owner.ID {
		t.Errorf("project filter returned %d grants", len(byProject))
	}
}

func TestDeleteGrant(t *testing.T) {
	f := setupOrgFixture(t)
	seedPermission(t, f.db, "suites.delete")

	grant, err := CreateGrant(f.db, f.org.ID, nil, GrantInput{
		UserID: f.member.ID, PermissionKey: "suites.delete",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := DeleteGrant(f.db, f.org.ID, grant.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := DeleteGrant(f.db, f.org.ID, grant.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}
