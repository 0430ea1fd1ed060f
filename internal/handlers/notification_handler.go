package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/360-proctor/proctoring-service/internal/errors"
	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
	"github.com/360-proctor/proctoring-service/internal/services"
	"github.com/360-proctor/proctoring-service/internal/utils"
)

type NotificationHandler struct {
	BaseHandler
	notificationService services.NotificationService
	validator           *utils.Validator
}

func NewNotificationHandler(
	notificationService services.NotificationService,
	validator *utils.Validator,
	logger utils.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         NewBaseHandler(logger),
		notificationService: notificationService,
		validator:           validator,
	}
}

// SendBulkNotificationRequest carries the recipients alongside the notification body
type SendBulkNotificationRequest struct {
	RecipientIDs []string                     `json:"recipient_ids" validate:"required,min=1"`
	Notification services.NotificationRequest `json:"notification" validate:"required"`
}

// SendBulkNotification delivers one notification to many recipients
// @Summary Send bulk notification
// @Description Persists a notification for each recipient and publishes a delivery event
// @Tags notifications
// @Accept json
// @Produce json
// @Param notification body SendBulkNotificationRequest true "Notification data"
// @Success 202 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /notifications/bulk [post]
func (h *NotificationHandler) SendBulkNotification(c *gin.Context) {
	var req SendBulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	senderID := h.requireUserID(c)
	if senderID == "" {
		return
	}

	h.LogRequest(c, "Sending bulk notification",
		"type", req.Notification.Type,
		"recipients", len(req.RecipientIDs))

	err := h.notificationService.SendBulkNotification(c.Request.Context(), req.RecipientIDs, &req.Notification, senderID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SuccessResponse{
		Message: "Notification queued for delivery",
	})
}

// ListMyNotifications lists the authenticated user's notifications
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Param type query string false "Notification type"
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} ListResponse
// @Router /notifications [get]
func (h *NotificationHandler) ListMyNotifications(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	page, size, offset := parsePagination(c)

	filters := repositories.NotificationFilters{
		Limit:  size,
		Offset: offset,
		Unread: c.Query("unread") == "true",
	}
	if notificationType := c.Query("type"); notificationType != "" {
		nt := models.NotificationType(notificationType)
		filters.Type = &nt
	}

	notifications, total, err := h.notificationService.GetUserNotifications(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Items: notifications,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

// CountUnread returns the authenticated user's unread notification count
// @Summary Count unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} gin.H
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	count, err := h.notificationService.CountUnread(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkNotificationRead marks one of the user's notifications as read
// @Summary Mark notification read
// @Tags notifications
// @Produce json
// @Param id path uint true "Notification ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Notification marked as read",
	})
}

func (h *NotificationHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors apperrors.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Notification not found",
		})
	case errors.Is(err, services.ErrNoRecipients):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Notification has no recipients",
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Forbidden - insufficient permissions",
		})
	case services.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
