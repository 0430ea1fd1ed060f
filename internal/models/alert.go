package models

import (
	"time"

	"gorm.io/datatypes"
)

type AlertReviewStatus string

const (
	AlertReviewPending   AlertReviewStatus = "pending"
	AlertReviewReviewed  AlertReviewStatus = "reviewed"
	AlertReviewDismissed AlertReviewStatus = "dismissed"
)

// Alert is the persisted form of a classified violation event, kept for
// proctor review and evidence.
type Alert struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	SessionID string        `json:"session_id" gorm:"not null;size:36;index"`
	UserID    string        `json:"user_id" gorm:"not null;size:255;index"`
	Type      ViolationType `json:"violation_type" gorm:"not null;index"`
	Severity  Severity      `json:"severity" gorm:"not null;index"`

	Description      string  `json:"description" gorm:"type:text"`
	Confidence       float64 `json:"confidence"`
	TrustScoreImpact float64 `json:"trust_score_impact"`

	// Event data
	Metadata datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	// Evidence
	ScreenshotPath *string `json:"screenshot_path" gorm:"size:500"`

	// Review status
	ReviewStatus AlertReviewStatus `json:"review_status" gorm:"default:pending"`
	ReviewedBy   *string           `json:"reviewed_by" gorm:"size:255"`
	ReviewedAt   *time.Time        `json:"reviewed_at"`
	ReviewNotes  *string           `json:"review_notes" gorm:"type:text"`

	OccurredAt time.Time `json:"occurred_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	Session ExamSession `json:"session" gorm:"foreignKey:SessionID"`
	User    User        `json:"user" gorm:"foreignKey:UserID"`
}

func (Alert) TableName() string {
	return "alerts"
}
