package models

import (
	"time"
)

type ViolationType string

const (
	ViolationFaceNotDetected    ViolationType = "face_not_detected"
	ViolationMultipleFaces      ViolationType = "multiple_faces"
	ViolationLookingAway        ViolationType = "looking_away"
	ViolationTabSwitch          ViolationType = "tab_switch"
	ViolationWindowBlur         ViolationType = "window_blur"
	ViolationAudioDetected      ViolationType = "audio_detected"
	ViolationPhoneDetected      ViolationType = "phone_detected"
	ViolationSuspiciousMovement ViolationType = "suspicious_movement"
	ViolationCopyPaste          ViolationType = "copy_paste"
	ViolationRightClick         ViolationType = "right_click"
	ViolationFullscreenExit     ViolationType = "fullscreen_exit"
	ViolationBookDetected       ViolationType = "book_detected"
	ViolationLaptopDetected     ViolationType = "laptop_detected"
	ViolationUnauthorizedObject ViolationType = "unauthorized_object"
)

// AllViolationTypes lists every recognized violation type, used by the
// custom request validator and the report exporter.
func AllViolationTypes() []ViolationType {
	return []ViolationType{
		ViolationFaceNotDetected,
		ViolationMultipleFaces,
		ViolationLookingAway,
		ViolationTabSwitch,
		ViolationWindowBlur,
		ViolationAudioDetected,
		ViolationPhoneDetected,
		ViolationSuspiciousMovement,
		ViolationCopyPaste,
		ViolationRightClick,
		ViolationFullscreenExit,
		ViolationBookDetected,
		ViolationLaptopDetected,
		ViolationUnauthorizedObject,
	}
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal value of a severity, LOW < MEDIUM < HIGH < CRITICAL.
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ViolationEvent is a single detected instance of suspicious behavior.
// Events are immutable once created by the classifier; the session ledger
// owns them exclusively.
type ViolationEvent struct {
	Type             ViolationType          `json:"violation_type"`
	Severity         Severity               `json:"severity"`
	Confidence       float64                `json:"confidence"`
	Timestamp        time.Time              `json:"timestamp"`
	SessionID        string                 `json:"session_id"`
	UserID           string                 `json:"user_id"`
	Description      string                 `json:"description"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	TrustScoreImpact float64                `json:"trust_score_impact"`
}

// ViolationSummary is a pure fold over a session's ledger.
type ViolationSummary struct {
	Total            int                   `json:"total_violations"`
	ByType           map[ViolationType]int `json:"by_type"`
	BySeverity       map[Severity]int      `json:"by_severity"`
	TotalTrustImpact float64               `json:"total_trust_score_impact"`
}
