package models

import (
	"time"

	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamDraft    ExamStatus = "Draft"
	ExamActive   ExamStatus = "Active"
	ExamExpired  ExamStatus = "Expired"
	ExamArchived ExamStatus = "Archived"
)

type Exam struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string    `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Duration    int        `json:"duration" gorm:"not null" validate:"required,min=5,max=300"` // Minutes
	Status      ExamStatus `json:"status" gorm:"default:Draft;index" validate:"omitempty,oneof=Draft Active Expired Archived"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Settings ExamProctoringSettings `json:"settings" gorm:"foreignKey:ExamID"`
	Sessions []ExamSession          `json:"sessions" gorm:"foreignKey:ExamID"`
	Creator  User                   `json:"creator" gorm:"foreignKey:CreatedBy"`

	// Computed fields (not stored)
	SessionCount  int     `json:"session_count" gorm:"-"`
	AvgTrustScore float64 `json:"avg_trust_score" gorm:"-"`
}

// ExamProctoringSettings controls which detectors and browser restrictions
// apply to sessions of an exam.
type ExamProctoringSettings struct {
	ExamID uint `json:"exam_id" gorm:"primaryKey"`

	// Detector toggles
	EnableFaceDetection   bool `json:"enable_face_detection" gorm:"default:true"`
	EnableEyeTracking     bool `json:"enable_eye_tracking" gorm:"default:true"`
	EnableAudioDetection  bool `json:"enable_audio_detection" gorm:"default:true"`
	EnableObjectDetection bool `json:"enable_object_detection" gorm:"default:true"`

	// Browser restrictions
	PreventTabSwitching bool `json:"prevent_tab_switching" gorm:"default:true"`
	PreventCopyPaste    bool `json:"prevent_copy_paste" gorm:"default:true"`
	PreventRightClick   bool `json:"prevent_right_click" gorm:"default:false"`
	RequireFullScreen   bool `json:"require_full_screen" gorm:"default:false"`

	// Evidence capture
	CaptureScreenshots bool `json:"capture_screenshots" gorm:"default:true"`
}

func (Exam) TableName() string {
	return "exams"
}
