package models

import (
	"time"

	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// ExamSession is the persisted record of one student's attempt at one exam.
// The live ledger and score history are owned by the proctoring coordinator;
// this row carries the durable lifecycle state and final results.
type ExamSession struct {
	ID     string        `json:"id" gorm:"primaryKey;size:36"`
	ExamID uint          `json:"exam_id" gorm:"not null;index"`
	UserID string        `json:"user_id" gorm:"not null;size:255;index"`
	Status SessionStatus `json:"status" gorm:"default:created;index"`

	StartedAt *time.Time `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`

	// Final results, written once on session end
	FinalTrustScore *float64 `json:"final_trust_score"`
	TotalViolations int      `json:"total_violations" gorm:"default:0"`
	DurationSeconds int      `json:"duration_seconds" gorm:"default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Exam   Exam    `json:"exam" gorm:"foreignKey:ExamID"`
	User   User    `json:"user" gorm:"foreignKey:UserID"`
	Alerts []Alert `json:"alerts" gorm:"foreignKey:SessionID"`
}

func (ExamSession) TableName() string {
	return "exam_sessions"
}

// SessionSummary is returned when a session ends.
type SessionSummary struct {
	SessionID       string  `json:"session_id"`
	DurationSeconds float64 `json:"duration"`
	TotalViolations int     `json:"total_violations"`
	FinalTrustScore float64 `json:"final_trust_score"`
	Status          string  `json:"status"`
}
