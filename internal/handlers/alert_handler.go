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

type AlertHandler struct {
	BaseHandler
	alertService services.AlertService
	validator    *utils.Validator
}

func NewAlertHandler(
	alertService services.AlertService,
	validator *utils.Validator,
	logger utils.Logger,
) *AlertHandler {
	return &AlertHandler{
		BaseHandler:  NewBaseHandler(logger),
		alertService: alertService,
		validator:    validator,
	}
}

// GetAlert retrieves an alert by ID
// @Summary Get alert
// @Tags alerts
// @Produce json
// @Param id path uint true "Alert ID"
// @Success 200 {object} models.Alert
// @Failure 404 {object} ErrorResponse
// @Router /alerts/{id} [get]
func (h *AlertHandler) GetAlert(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	alert, err := h.alertService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ListAlerts lists alerts with optional filters
// @Summary List alerts
// @Tags alerts
// @Produce json
// @Param session_id query string false "Session ID"
// @Param user_id query string false "User ID"
// @Param type query string false "Violation type"
// @Param severity query string false "Severity"
// @Param review_status query string false "Review status"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} ListResponse
// @Router /alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	page, size, offset := parsePagination(c)

	filters := repositories.AlertFilters{
		Limit:  size,
		Offset: offset,
	}
	if sessionID := c.Query("session_id"); sessionID != "" {
		filters.SessionID = &sessionID
	}
	if userID := c.Query("user_id"); userID != "" {
		filters.UserID = &userID
	}
	if violationType := c.Query("type"); violationType != "" {
		vt := models.ViolationType(violationType)
		filters.Type = &vt
	}
	if severity := c.Query("severity"); severity != "" {
		sev := models.Severity(severity)
		filters.Severity = &sev
	}
	if reviewStatus := c.Query("review_status"); reviewStatus != "" {
		rs := models.AlertReviewStatus(reviewStatus)
		filters.ReviewStatus = &rs
	}

	alerts, total, err := h.alertService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Items: alerts,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

// GetSessionAlerts returns every alert for a session in chronological order
// @Summary List session alerts
// @Tags alerts
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {array} models.Alert
// @Router /alerts/session/{session_id} [get]
func (h *AlertHandler) GetSessionAlerts(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	alerts, err := h.alertService.GetBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// GetSessionAlertStats aggregates alert counts for a session
// @Summary Get session alert statistics
// @Tags alerts
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} services.AlertStats
// @Router /alerts/session/{session_id}/stats [get]
func (h *AlertHandler) GetSessionAlertStats(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	stats, err := h.alertService.SessionStats(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ReviewAlert marks a pending alert as reviewed or dismissed
// @Summary Review alert
// @Tags alerts
// @Accept json
// @Produce json
// @Param id path uint true "Alert ID"
// @Param review body services.ReviewAlertRequest true "Review decision"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /alerts/{id}/review [post]
func (h *AlertHandler) ReviewAlert(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.ReviewAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	reviewerID := h.requireUserID(c)
	if reviewerID == "" {
		return
	}

	h.LogRequest(c, "Reviewing alert", "alert_id", id, "status", req.Status)

	if err := h.alertService.Review(c.Request.Context(), id, &req, reviewerID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Alert reviewed successfully",
	})
}

func (h *AlertHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors apperrors.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Alert not found",
		})
	case errors.Is(err, services.ErrAlertAlreadyReviewed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Alert has already been reviewed",
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
