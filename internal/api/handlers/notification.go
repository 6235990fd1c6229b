package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	db *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// ListNotifications godoc
// @Summary List the caller's notifications in the current organization
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Success 200 {array} models.AppNotification
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "notifications.read", nil); err != nil {
		respondError(c, err)
		return
	}

	q := h.db.Where("organization_id = ? AND user_id = ?", ws.OrganizationID, ws.User.ID)
	if c.Query("unread") == "true" {
		q = q.Where("read_at IS NULL")
	}

	var notifications []models.AppNotification
	if err := q.Order("id DESC").Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.AppNotification
// @Failure 404 {object} ErrorResponse
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	ws := currentWorkspace(c)
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "notifications.manage", nil); err != nil {
		respondError(c, err)
		return
	}

	var notification models.AppNotification
	err := h.db.Where("id = ? AND organization_id = ? AND user_id = ?",
		notificationID, ws.OrganizationID, ws.User.ID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, service.ErrNotFound)
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch notification"})
		return
	}

	if notification.ReadAt == nil {
		now := time.Now().UTC()
		if err := h.db.Model(&notification).Update("read_at", &now).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to update notification"})
			return
		}
		notification.ReadAt = &now
	}
	c.JSON(http.StatusOK, notification)
}

// MarkAllNotificationsRead godoc
// @Summary Mark all of the caller's notifications as read
// @Tags notifications
// @Security BearerAuth
// @Success 204
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllNotificationsRead(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "notifications.manage", nil); err != nil {
		respondError(c, err)
		return
	}

	now := time.Now().UTC()
	err := h.db.Model(&models.AppNotification{}).
		Where("organization_id = ? AND user_id = ? AND read_at IS NULL", ws.OrganizationID, ws.User.ID).
		Update("read_at", &now).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to update notifications"})
		return
	}
	c.Status(http.StatusNoContent)
}
