package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/360-proctor/proctoring-service/internal/proctoring"
	"github.com/360-proctor/proctoring-service/internal/services"
	"github.com/360-proctor/proctoring-service/internal/utils"
	"github.com/360-proctor/proctoring-service/internal/ws"
)

type HandlerManager struct {
	proctoringHandler   *ProctoringHandler
	examHandler         *ExamHandler
	alertHandler        *AlertHandler
	notificationHandler *NotificationHandler
}

func NewHandlerManager(
	coordinator *proctoring.Coordinator,
	examService services.ExamService,
	alertService services.AlertService,
	notificationService services.NotificationService,
	reportService services.ReportService,
	hub *ws.Hub,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		proctoringHandler:   NewProctoringHandler(coordinator, examService, reportService, hub, validator, logger),
		examHandler:         NewExamHandler(examService, validator, logger),
		alertHandler:        NewAlertHandler(alertService, validator, logger),
		notificationHandler: NewNotificationHandler(notificationService, validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(IdentityMiddleware())

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Proctoring session routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.proctoringHandler.StartSession)
			sessions.GET("/active", hm.proctoringHandler.ListActiveSessions)
			sessions.POST("/:id/frames", hm.proctoringHandler.ProcessFrame)
			sessions.POST("/:id/events", hm.proctoringHandler.ProcessBrowserEvent)
			sessions.POST("/:id/end", hm.proctoringHandler.EndSession)
			sessions.DELETE("/:id", hm.proctoringHandler.CleanupSession)
			sessions.GET("/:id/status", hm.proctoringHandler.GetSessionStatus)
			sessions.GET("/:id/summary", hm.proctoringHandler.GetSessionSummary)
			sessions.GET("/:id/violations", hm.proctoringHandler.GetSessionViolations)
			sessions.GET("/:id/violations/summary", hm.proctoringHandler.GetViolationSummary)
			sessions.GET("/:id/score-history", hm.proctoringHandler.GetScoreHistory)
			sessions.GET("/:id/analytics", hm.proctoringHandler.GetScoreAnalytics)
			sessions.GET("/:id/report", hm.proctoringHandler.ExportSessionReport)
		}

		// Exam routes
		exams := v1.Group("/exams")
		{
			exams.POST("", hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.PUT("/:id", hm.examHandler.UpdateExam)
			exams.DELETE("/:id", hm.examHandler.DeleteExam)
			exams.POST("/:id/publish", hm.examHandler.PublishExam)
			exams.POST("/:id/archive", hm.examHandler.ArchiveExam)
			exams.GET("/:id/settings", hm.examHandler.GetExamSettings)
			exams.PUT("/:id/settings", hm.examHandler.UpdateExamSettings)
		}

		// Alert routes
		alerts := v1.Group("/alerts")
		{
			alerts.GET("", hm.alertHandler.ListAlerts)
			alerts.GET("/:id", hm.alertHandler.GetAlert)
			alerts.POST("/:id/review", hm.alertHandler.ReviewAlert)
			alerts.GET("/session/:session_id", hm.alertHandler.GetSessionAlerts)
			alerts.GET("/session/:session_id/stats", hm.alertHandler.GetSessionAlertStats)
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", hm.notificationHandler.ListMyNotifications)
			notifications.POST("/bulk", hm.notificationHandler.SendBulkNotification)
			notifications.GET("/unread-count", hm.notificationHandler.CountUnread)
			notifications.POST("/:id/read", hm.notificationHandler.MarkNotificationRead)
		}
	}

	// Live monitoring websocket
	router.GET("/ws/monitor", hm.proctoringHandler.Monitor)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "proctoring-service",
		})
	})
}

// IdentityMiddleware copies the caller identity forwarded by the API gateway
// into the request context. Requests without the header stay anonymous and
// handlers that need an identity reject them with 401.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
