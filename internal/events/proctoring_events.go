package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/360-proctor/proctoring-service/internal/models"
)

// EventType represents different types of proctoring events
type EventType string

const (
	// Session lifecycle events
	EventSessionStarted EventType = "session.started"
	EventSessionEnded   EventType = "session.ended"

	// Monitoring events
	EventViolationDetected EventType = "violation.detected"
	EventTrustScoreUpdated EventType = "trust_score.updated"

	// System events
	EventBulkNotification EventType = "system.bulk_notification"
)

// ProctoringEvent is the base event structure published to the notification
// channel for every proctoring occurrence.
type ProctoringEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	SessionID string                 `json:"session_id,omitempty"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type SessionStartedEvent struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExamID    uint      `json:"exam_id"`
	StartedAt time.Time `json:"started_at"`
	Score     float64   `json:"trust_score"`
}

type SessionEndedEvent struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	ExamID          uint      `json:"exam_id"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration"`
	TotalViolations int       `json:"total_violations"`
	FinalTrustScore float64   `json:"final_trust_score"`
}

type ViolationDetectedEvent struct {
	SessionID        string               `json:"session_id"`
	UserID           string               `json:"user_id"`
	ViolationType    models.ViolationType `json:"violation_type"`
	Severity         models.Severity      `json:"severity"`
	Confidence       float64              `json:"confidence"`
	Description      string               `json:"description"`
	TrustScoreImpact float64              `json:"trust_score_impact"`
	OccurredAt       time.Time            `json:"occurred_at"`
}

type TrustScoreUpdatedEvent struct {
	SessionID       string                    `json:"session_id"`
	UserID          string                    `json:"user_id"`
	Score           float64                   `json:"trust_score"`
	Category        models.TrustScoreCategory `json:"category"`
	Trend           models.ScoreTrend         `json:"trend"`
	ViolationsCount int                       `json:"violations_count"`
}

type BulkNotificationEvent struct {
	RecipientIDs []string                    `json:"recipient_ids"`
	Type         models.NotificationType     `json:"type"`
	Title        string                      `json:"title"`
	Message      string                      `json:"message"`
	Priority     models.NotificationPriority `json:"priority"`
	Metadata     map[string]interface{}      `json:"metadata,omitempty"`
	SenderID     string                      `json:"sender_id"`
}

// Event factory functions

func NewSessionStartedEvent(sessionID, userID string, examID uint, startedAt time.Time, score float64) *ProctoringEvent {
	return newEvent(EventSessionStarted, sessionID, SessionStartedEvent{
		SessionID: sessionID,
		UserID:    userID,
		ExamID:    examID,
		StartedAt: startedAt,
		Score:     score,
	})
}

func NewSessionEndedEvent(sessionID, userID string, examID uint, summary models.SessionSummary, endedAt time.Time) *ProctoringEvent {
	return newEvent(EventSessionEnded, sessionID, SessionEndedEvent{
		SessionID:       sessionID,
		UserID:          userID,
		ExamID:          examID,
		EndedAt:         endedAt,
		DurationSeconds: summary.DurationSeconds,
		TotalViolations: summary.TotalViolations,
		FinalTrustScore: summary.FinalTrustScore,
	})
}

func NewViolationDetectedEvent(violation models.ViolationEvent) *ProctoringEvent {
	return newEvent(EventViolationDetected, violation.SessionID, ViolationDetectedEvent{
		SessionID:        violation.SessionID,
		UserID:           violation.UserID,
		ViolationType:    violation.Type,
		Severity:         violation.Severity,
		Confidence:       violation.Confidence,
		Description:      violation.Description,
		TrustScoreImpact: violation.TrustScoreImpact,
		OccurredAt:       violation.Timestamp,
	})
}

func NewTrustScoreUpdatedEvent(sessionID, userID string, result models.TrustScoreResult) *ProctoringEvent {
	return newEvent(EventTrustScoreUpdated, sessionID, TrustScoreUpdatedEvent{
		SessionID:       sessionID,
		UserID:          userID,
		Score:           result.CurrentScore,
		Category:        result.Category,
		Trend:           result.Trend,
		ViolationsCount: result.ViolationsCount,
	})
}

func NewBulkNotificationEvent(recipientIDs []string, notificationType models.NotificationType, title, message string, priority models.NotificationPriority, metadata map[string]interface{}, senderID string) *ProctoringEvent {
	return newEvent(EventBulkNotification, "", BulkNotificationEvent{
		RecipientIDs: recipientIDs,
		Type:         notificationType,
		Title:        title,
		Message:      message,
		Priority:     priority,
		Metadata:     metadata,
		SenderID:     senderID,
	})
}

func newEvent(eventType EventType, sessionID string, data interface{}) *ProctoringEvent {
	return &ProctoringEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "proctoring-service",
		Version:   "1.0",
		SessionID: sessionID,
		Data:      data,
	}
}
