package handlers

import (
	"net/http"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuditLogHandler struct {
	db *gorm.DB
}

func NewAuditLogHandler(db *gorm.DB) *AuditLogHandler {
	return &AuditLogHandler{db: db}
}

// ListAuditLogs godoc
// @Summary List the current organization's audit log (org admins only)
// @Tags audit
// @Security BearerAuth
// @Produce json
// @Param action query string false "Filter by action"
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} ErrorResponse
// @Router /audit-logs [get]
func (h *AuditLogHandler) ListAuditLogs(c *gin.Context) {
	ws := currentWorkspace(c)

	if !ws.IsOrgAdmin {
		respondError(c, &service.ForbiddenError{Message: "audit logs are restricted to organization admins"})
		return
	}

	q := h.db.Where("organization_id = ?", ws.OrganizationID)
	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}

	var logs []models.AuditLog
	if err := q.Order("id DESC").Limit(500).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch audit logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
