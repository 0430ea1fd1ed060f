package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string
type NotificationPriority int

const (
	// Notification types
	NotificationExamPublished      NotificationType = "exam_published"
	NotificationExamStarting       NotificationType = "exam_starting"
	NotificationSessionStarted     NotificationType = "session_started"
	NotificationSessionCompleted   NotificationType = "session_completed"
	NotificationViolationDetected  NotificationType = "violation_detected"
	NotificationTrustScoreCritical NotificationType = "trust_score_critical"
	NotificationReportReady        NotificationType = "report_ready"
	NotificationSystemMaintenance  NotificationType = "system_maintenance"

	// Priority levels
	PriorityLow      NotificationPriority = 1
	PriorityNormal   NotificationPriority = 2
	PriorityHigh     NotificationPriority = 3
	PriorityCritical NotificationPriority = 4
)

type Notification struct {
	ID      uint             `json:"id" gorm:"primaryKey"`
	Type    NotificationType `json:"type" gorm:"not null;index"`
	Title   string           `json:"title" gorm:"not null;size:255"`
	Message string           `json:"message" gorm:"type:text"`

	// Recipients
	RecipientID   *string   `json:"recipient_id" gorm:"size:255;index"` // null for broadcast
	RecipientRole *UserRole `json:"recipient_role"`                     // null for specific user

	// Related entities
	ExamID    *uint   `json:"exam_id" gorm:"index"`
	SessionID *string `json:"session_id" gorm:"size:36;index"`

	// Delivery settings
	Channels datatypes.JSON `json:"channels" gorm:"type:jsonb"` // ["email", "push", "in_app"]
	Priority int            `json:"priority" gorm:"default:1"`

	// Status
	SentAt         *time.Time `json:"sent_at"`
	ReadAt         *time.Time `json:"read_at"`
	DeliveryStatus string     `json:"delivery_status" gorm:"default:pending"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by" gorm:"not null;size:255"`

	// Relations
	Recipient *User        `json:"recipient" gorm:"foreignKey:RecipientID"`
	Exam      *Exam        `json:"exam" gorm:"foreignKey:ExamID"`
	Session   *ExamSession `json:"session" gorm:"foreignKey:SessionID"`
}
