package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/360-proctor/proctoring-service/internal/detection"
	apperrors "github.com/360-proctor/proctoring-service/internal/errors"
	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/proctoring"
	"github.com/360-proctor/proctoring-service/internal/services"
	"github.com/360-proctor/proctoring-service/internal/utils"
	"github.com/360-proctor/proctoring-service/internal/ws"
)

type ProctoringHandler struct {
	BaseHandler
	coordinator   *proctoring.Coordinator
	examService   services.ExamService
	reportService services.ReportService
	hub           *ws.Hub
	validator     *utils.Validator
	upgrader      websocket.Upgrader
}

func NewProctoringHandler(
	coordinator *proctoring.Coordinator,
	examService services.ExamService,
	reportService services.ReportService,
	hub *ws.Hub,
	validator *utils.Validator,
	logger utils.Logger,
) *ProctoringHandler {
	return &ProctoringHandler{
		BaseHandler:   NewBaseHandler(logger),
		coordinator:   coordinator,
		examService:   examService,
		reportService: reportService,
		hub:           hub,
		validator:     validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ===== REQUEST / RESPONSE STRUCTURES =====

// StartSessionRequest starts a proctored session for an exam
type StartSessionRequest struct {
	SessionID       string `json:"session_id" validate:"omitempty,max=255"`
	ExamID          uint   `json:"exam_id" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=5,max=300"`
}

// FrameIngestResponse is returned for every processed frame or browser event
type FrameIngestResponse struct {
	TrustScore models.TrustScoreResult `json:"trust_score"`
	Violations []models.ViolationEvent `json:"violations"`
}

// StartSession begins monitoring a new exam session
// @Summary Start proctoring session
// @Description Registers a new proctored session and starts trust score tracking
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body StartSessionRequest true "Session data"
// @Success 201 {object} models.ExamSession
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions [post]
func (h *ProctoringHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	duration := req.DurationMinutes
	exam, err := h.examService.GetByID(c.Request.Context(), req.ExamID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if exam.Status != models.ExamActive {
		h.handleServiceError(c, services.ErrExamNotActive)
		return
	}
	if duration == 0 {
		duration = exam.Duration
	}

	h.LogRequest(c, "Starting proctoring session", "exam_id", req.ExamID)

	session, err := h.coordinator.StartSession(c.Request.Context(), req.SessionID, userID, req.ExamID, duration)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ProcessFrame ingests one detector frame for a session
// @Summary Process detection frame
// @Description Classifies detector output, updates the trust score and returns both
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param frame body detection.FrameData true "Detector frame"
// @Success 200 {object} FrameIngestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/frames [post]
func (h *ProctoringHandler) ProcessFrame(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	var frame detection.FrameData
	if err := c.ShouldBindJSON(&frame); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	result, violations, err := h.coordinator.ProcessFrame(c.Request.Context(), sessionID, frame)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, FrameIngestResponse{
		TrustScore: result,
		Violations: violations,
	})
}

// ProcessBrowserEvent ingests one browser event for a session
// @Summary Process browser event
// @Description Classifies a browser event, updates the trust score and returns both
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param event body detection.BrowserEvent true "Browser event"
// @Success 200 {object} FrameIngestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/events [post]
func (h *ProctoringHandler) ProcessBrowserEvent(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	var event detection.BrowserEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.validator.ValidateStruct(&event); err != nil {
		h.handleServiceError(c, err)
		return
	}

	result, violations, err := h.coordinator.ProcessBrowserEvent(c.Request.Context(), sessionID, event)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, FrameIngestResponse{
		TrustScore: result,
		Violations: violations,
	})
}

// EndSession finalizes a session and returns its summary
// @Summary End proctoring session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionSummary
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/end [post]
func (h *ProctoringHandler) EndSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	h.LogRequest(c, "Ending proctoring session", "session_id", sessionID)

	summary, err := h.coordinator.EndSession(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// CleanupSession discards the in-memory state of a completed session
// @Summary Clean up session state
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *ProctoringHandler) CleanupSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	if err := h.coordinator.Cleanup(sessionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session state cleaned up",
	})
}

// GetSessionStatus returns the live status of a session
// @Summary Get session status
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} proctoring.LiveStatus
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/status [get]
func (h *ProctoringHandler) GetSessionStatus(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	status, err := h.coordinator.Status(sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetSessionSummary returns the summary of an active or completed session
// @Summary Get session summary
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionSummary
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/summary [get]
func (h *ProctoringHandler) GetSessionSummary(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	summary, err := h.coordinator.Summary(sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetSessionViolations lists every violation recorded for a session
// @Summary List session violations
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} models.ViolationEvent
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/violations [get]
func (h *ProctoringHandler) GetSessionViolations(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	violations, err := h.coordinator.Violations(sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, violations)
}

// GetViolationSummary aggregates the violations of a session by type and severity
// @Summary Get violation summary
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.ViolationSummary
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/violations/summary [get]
func (h *ProctoringHandler) GetViolationSummary(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	summary, err := h.coordinator.ViolationSummary(sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetScoreHistory returns the recorded trust score history of a session
// @Summary Get trust score history
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} number
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/score-history [get]
func (h *ProctoringHandler) GetScoreHistory(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	history, err := h.coordinator.ScoreHistory(sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetScoreAnalytics returns aggregate trust score statistics for a session
// @Summary Get trust score analytics
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.ScoreAnalytics
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/analytics [get]
func (h *ProctoringHandler) GetScoreAnalytics(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	analytics, err := h.coordinator.Analytics(sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// ListActiveSessions returns the IDs of every session currently being monitored
// @Summary List active sessions
// @Tags sessions
// @Produce json
// @Success 200 {array} string
// @Router /sessions/active [get]
func (h *ProctoringHandler) ListActiveSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.ActiveSessions())
}

// ExportSessionReport generates an Excel report for a session
// @Summary Export session report
// @Description Builds an Excel workbook with the session summary, violations and score history
// @Tags sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/report [get]
func (h *ProctoringHandler) ExportSessionReport(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Exporting session report", "session_id", sessionID)

	data, err := h.reportService.ExportSessionReport(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("session-report-%s.xlsx", sessionID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// Monitor upgrades the connection to a websocket and streams live session updates
// @Summary Live monitoring websocket
// @Description Streams violation and trust score updates for the requested session
// @Tags monitoring
// @Param session_id query string false "Session to watch (students and watching proctors)"
// @Param client_type query string false "student, proctor or admin (default proctor)"
// @Param client_id query string false "Stable client identifier"
// @Router /ws/monitor [get]
func (h *ProctoringHandler) Monitor(c *gin.Context) {
	clientType := ws.ClientType(c.DefaultQuery("client_type", string(ws.ClientProctor)))
	switch clientType {
	case ws.ClientStudent, ws.ClientProctor, ws.ClientAdmin:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid client_type",
			Details: "must be student, proctor or admin",
		})
		return
	}

	sessionID := c.Query("session_id")
	if clientType == ws.ClientStudent && sessionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "session_id is required for student clients",
		})
		return
	}

	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.LogError(c, err, "WebSocket upgrade failed")
		return
	}

	h.hub.Register(clientID, clientType, sessionID, conn)

	// Reads are only used to detect disconnects; clients never send payloads.
	go func() {
		defer h.hub.Unregister(clientID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *ProctoringHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, proctoring.ErrSessionExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session already exists",
		})
	case proctoring.IsStateConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session is not in a valid state for this operation",
			Details: err.Error(),
		})
	case errors.Is(err, proctoring.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Malformed detector input",
			Details: err.Error(),
		})
	case proctoring.IsNotFound(err), errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
		})
	case errors.Is(err, services.ErrExamNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Exam not found",
		})
	case errors.Is(err, services.ErrExamNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Exam is not active",
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
