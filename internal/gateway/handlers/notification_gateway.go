package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"garage-system/internal/database/models"
	"garage-system/internal/gateway/middleware"
	"garage-system/internal/services/notification"
)

type NotificationHTTPHandler struct {
	notifier *notification.Dispatcher
}

func NewNotificationHTTPHandler(notifier *notification.Dispatcher) *NotificationHTTPHandler {
	return &NotificationHTTPHandler{notifier: notifier}
}

func (h *NotificationHTTPHandler) ListNotifications(c *gin.Context) {
	user := models.User{
		ID:   middleware.UserID(c),
		Role: c.GetString(middleware.ContextRole),
	}
	notifications, err := h.notifier.ListForUser(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Notifications retrieved successfully", notifications))
}

func (h *NotificationHTTPHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notifier.MarkRead(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Notification marked as read", nil))
}
