package audit

import (
	"encoding/json"
	"log/slog"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// LogAction records an audit log entry. Audit failures are logged, never
// propagated: an unauditable action still completes.
func LogAction(db *gorm.DB, organizationID, userID *uint, action, resource string, details interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	entry := models.AuditLog{
		OrganizationID: organizationID,
		UserID:         userID,
		Action:         action,
		Resource:       resource,
		DetailsJSON:    string(detailsJSON),
	}

	if err := db.Create(&entry).Error; err != nil {
		slog.Error("Failed to write audit log", "action", action, "error", err)
	}
}

// Audit actions constants
const (
	ActionCreateUser         = "create_user"
	ActionLogin              = "login"
	ActionLogout             = "logout"
	ActionLoginFailed        = "login_failed"
	ActionCreateOrganization = "create_organization"
	ActionDeleteOrganization = "delete_organization"
	ActionCreateProject      = "create_project"
	ActionAddMember          = "add_member"
	ActionRemoveMember       = "remove_member"
	ActionChangeMemberRole   = "change_member_role"
	ActionCreateRole         = "create_role"
	ActionUpdateRole         = "update_role"
	ActionDeleteRole         = "delete_role"
	ActionCreateGrant        = "create_grant"
	ActionDeleteGrant        = "delete_grant"
	ActionCreateInvitation   = "create_invitation"
	ActionRevokeInvitation   = "revoke_invitation"
	ActionAcceptInvitation   = "accept_invitation"
	ActionStartRun           = "start_run"
	ActionCancelRun          = "cancel_run"
)
