package detection

import (
	"github.com/360-proctor/proctoring-service/internal/models"
)

// ViolationRule is the static per-type configuration: trust-score weight,
// severity and human-readable description. Declarative configuration instead
// of branching keeps the classifier table-driven and unit-testable.
type ViolationRule struct {
	Weight      float64
	Severity    models.Severity
	Description string
}

var violationRules = map[models.ViolationType]ViolationRule{
	models.ViolationFaceNotDetected: {
		Weight:      0.15,
		Severity:    models.SeverityHigh,
		Description: "No face detected in frame",
	},
	models.ViolationMultipleFaces: {
		Weight:      0.25,
		Severity:    models.SeverityCritical,
		Description: "Multiple faces detected",
	},
	models.ViolationLookingAway: {
		Weight:      0.10,
		Severity:    models.SeverityMedium,
		Description: "Student looking away from screen",
	},
	models.ViolationTabSwitch: {
		Weight:      0.20,
		Severity:    models.SeverityHigh,
		Description: "Student switched browser tab",
	},
	models.ViolationWindowBlur: {
		Weight:      0.15,
		Severity:    models.SeverityMedium,
		Description: "Browser window lost focus",
	},
	models.ViolationAudioDetected: {
		Weight:      0.12,
		Severity:    models.SeverityMedium,
		Description: "Audio/speech detected during exam",
	},
	models.ViolationPhoneDetected: {
		Weight:      0.30,
		Severity:    models.SeverityCritical,
		Description: "Phone detected during exam",
	},
	models.ViolationSuspiciousMovement: {
		Weight:      0.08,
		Severity:    models.SeverityLow,
		Description: "Suspicious movement detected",
	},
	models.ViolationCopyPaste: {
		Weight:      0.25,
		Severity:    models.SeverityHigh,
		Description: "Copy/paste operation detected",
	},
	models.ViolationRightClick: {
		Weight:      0.05,
		Severity:    models.SeverityLow,
		Description: "Right-click context menu accessed",
	},
	models.ViolationFullscreenExit: {
		Weight:      0.20,
		Severity:    models.SeverityHigh,
		Description: "Student exited fullscreen mode",
	},
	models.ViolationBookDetected: {
		Weight:      0.15,
		Severity:    models.SeverityMedium,
		Description: "Book detected during exam",
	},
	models.ViolationLaptopDetected: {
		Weight:      0.20,
		Severity:    models.SeverityHigh,
		Description: "Laptop detected during exam",
	},
	models.ViolationUnauthorizedObject: {
		Weight:      0.10,
		Severity:    models.SeverityMedium,
		Description: "Unauthorized object detected",
	},
}

// browserEventViolations maps discrete browser event types to violations.
// Unrecognized event types are ignored, not errors.
var browserEventViolations = map[string]models.ViolationType{
	"tab_switch":      models.ViolationTabSwitch,
	"window_blur":     models.ViolationWindowBlur,
	"copy_paste":      models.ViolationCopyPaste,
	"right_click":     models.ViolationRightClick,
	"fullscreen_exit": models.ViolationFullscreenExit,
}

// RuleFor returns the static rule for a violation type. The fallback weight
// matches the engine's default for unknown types.
func RuleFor(t models.ViolationType) ViolationRule {
	if rule, ok := violationRules[t]; ok {
		return rule
	}
	return ViolationRule{Weight: 0.1, Severity: models.SeverityMedium, Description: "Violation detected"}
}

// Weight returns the fixed trust-score weight for a violation type.
func Weight(t models.ViolationType) float64 {
	return RuleFor(t).Weight
}

// expectedObjectLabels are object-detector labels that never produce an
// UNAUTHORIZED_OBJECT violation: the person is expected, and phone/book/laptop
// are handled by their own dedicated rules.
var expectedObjectLabels = map[string]bool{
	"person":     true,
	"cell phone": true,
	"book":       true,
	"laptop":     true,
}
