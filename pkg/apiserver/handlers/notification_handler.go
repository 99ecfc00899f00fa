package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/model"
	"github.com/docuflow/docuflow/pkg/store"
)

type NotificationHandler struct {
	notifications store.NotificationStore
	logger        *zap.Logger
}

func NewNotificationHandler(notifications store.NotificationStore, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

type notificationCreateRequest struct {
	Username string `json:"username" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

type notificationResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

// ListByUser handles GET /api/notifications/user/:username.
func (h *NotificationHandler) ListByUser(c *gin.Context) {
	inbox, err := h.notifications.ListByUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, h.logger, err, "failed to list notifications")
		return
	}

	response := make([]notificationResponse, 0, len(inbox))
	for _, notification := range inbox {
		response = append(response, mapNotification(notification))
	}
	c.JSON(http.StatusOK, response)
}

func (h *NotificationHandler) Create(c *gin.Context) {
	var req notificationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	notification := &model.Notification{
		ID:        uuid.New(),
		Username:  req.Username,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.notifications.Create(c.Request.Context(), notification); err != nil {
		respondError(c, h.logger, err, "failed to create notification")
		return
	}

	c.JSON(http.StatusCreated, mapNotification(*notification))
}

// MarkRead handles POST /api/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "failed to mark notification read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func mapNotification(notification model.Notification) notificationResponse {
	return notificationResponse{
		ID:        notification.ID.String(),
		Username:  notification.Username,
		Message:   notification.Message,
		Read:      notification.Read,
		CreatedAt: formatTime(notification.CreatedAt),
	}
}
