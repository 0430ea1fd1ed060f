package detection

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/360-proctor/proctoring-service/internal/models"
)

// Confidence floors applied when the advanced detection pipeline reports a
// result. Advanced detections are less likely to be false positives, so their
// confidence never drops below these minimums.
const (
	advancedPhoneConfidenceFloor     = 0.9
	advancedMultiFaceConfidenceFloor = 0.95

	// Default confidences for object-detector results that do not report
	// their own per-violation confidence.
	bookDetectionConfidence      = 0.85
	laptopDetectionConfidence    = 0.9
	unauthorizedObjectConfidence = 0.8
	browserEventConfidence       = 1.0
)

// Classifier maps normalized detector results and browser events into typed
// violation events. It has no side effects beyond producing the event list;
// persistence and notification dispatch belong to the session coordinator.
type Classifier struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{
		logger: logger,
		now:    time.Now,
	}
}

// ClassifyFrame inspects every present sub-result of a frame bundle and emits
// zero or more violation events. Absent signals are skipped; absence of data
// is not itself a violation.
func (c *Classifier) ClassifyFrame(sessionID, userID string, frame FrameData) []models.ViolationEvent {
	var violations []models.ViolationEvent

	if frame.FaceDetection != nil {
		violations = append(violations, c.classifyFaces(sessionID, userID, *frame.FaceDetection)...)
	}
	if frame.EyeTracking != nil {
		violations = append(violations, c.classifyGaze(sessionID, userID, *frame.EyeTracking)...)
	}
	if frame.Audio != nil {
		violations = append(violations, c.classifyAudio(sessionID, userID, *frame.Audio)...)
	}
	if frame.PhoneDetection != nil {
		violations = append(violations, c.classifyPhone(sessionID, userID, *frame.PhoneDetection)...)
	}
	if frame.ObjectDetection != nil {
		violations = append(violations, c.classifyObjects(sessionID, userID, *frame.ObjectDetection)...)
	}

	if len(violations) > 0 {
		c.logger.Debug("Classified frame violations",
			"session_id", sessionID,
			"count", len(violations))
	}

	return violations
}

// ClassifyBrowserEvent maps a discrete browser event to its violation, if the
// event type is one of the proctored ones.
func (c *Classifier) ClassifyBrowserEvent(sessionID, userID string, event BrowserEvent) []models.ViolationEvent {
	violationType, ok := browserEventViolations[event.Type]
	if !ok {
		return nil
	}

	metadata := make(map[string]interface{}, len(event.Payload)+1)
	for k, v := range event.Payload {
		metadata[k] = v
	}
	metadata["event_type"] = event.Type

	return []models.ViolationEvent{
		c.newViolation(sessionID, userID, violationType, browserEventConfidence, RuleFor(violationType).Description, metadata),
	}
}

func (c *Classifier) classifyFaces(sessionID, userID string, face FaceDetectionResult) []models.ViolationEvent {
	metadata := map[string]interface{}{
		"faces_detected":   face.FacesDetected,
		"detection_method": string(face.Method),
	}

	switch {
	case face.FacesDetected == 0:
		return []models.ViolationEvent{
			c.newViolation(sessionID, userID, models.ViolationFaceNotDetected, face.Confidence,
				RuleFor(models.ViolationFaceNotDetected).Description, metadata),
		}
	case face.FacesDetected > 1:
		confidence := face.Confidence
		if face.Method == MethodAdvanced && confidence < advancedMultiFaceConfidenceFloor {
			confidence = advancedMultiFaceConfidenceFloor
		}
		return []models.ViolationEvent{
			c.newViolation(sessionID, userID, models.ViolationMultipleFaces, confidence,
				fmt.Sprintf("Multiple faces detected: %d", face.FacesDetected), metadata),
		}
	}
	return nil
}

func (c *Classifier) classifyGaze(sessionID, userID string, eye EyeTrackingResult) []models.ViolationEvent {
	if !eye.LookingAway {
		return nil
	}
	metadata := map[string]interface{}{"looking_away": true}
	return []models.ViolationEvent{
		c.newViolation(sessionID, userID, models.ViolationLookingAway, eye.Confidence,
			RuleFor(models.ViolationLookingAway).Description, metadata),
	}
}

func (c *Classifier) classifyAudio(sessionID, userID string, audio AudioResult) []models.ViolationEvent {
	if !audio.AudioDetected {
		return nil
	}
	metadata := map[string]interface{}{"audio_detected": true}
	return []models.ViolationEvent{
		c.newViolation(sessionID, userID, models.ViolationAudioDetected, audio.Confidence,
			RuleFor(models.ViolationAudioDetected).Description, metadata),
	}
}

func (c *Classifier) classifyPhone(sessionID, userID string, phone PhoneDetectionResult) []models.ViolationEvent {
	if !phone.PhoneDetected {
		return nil
	}
	confidence := phone.Confidence
	if phone.Method == MethodAdvanced && confidence < advancedPhoneConfidenceFloor {
		confidence = advancedPhoneConfidenceFloor
	}
	metadata := map[string]interface{}{"detection_method": string(phone.Method)}
	return []models.ViolationEvent{
		c.newViolation(sessionID, userID, models.ViolationPhoneDetected, confidence,
			RuleFor(models.ViolationPhoneDetected).Description, metadata),
	}
}

func (c *Classifier) classifyObjects(sessionID, userID string, objects ObjectDetectionResult) []models.ViolationEvent {
	var violations []models.ViolationEvent

	if objects.BookCount > 0 {
		metadata := map[string]interface{}{"book_count": objects.BookCount, "detection_method": string(MethodAdvanced)}
		violations = append(violations,
			c.newViolation(sessionID, userID, models.ViolationBookDetected, bookDetectionConfidence,
				fmt.Sprintf("Book detected during exam: %d found", objects.BookCount), metadata))
	}

	if objects.LaptopCount > 0 {
		metadata := map[string]interface{}{"laptop_count": objects.LaptopCount, "detection_method": string(MethodAdvanced)}
		violations = append(violations,
			c.newViolation(sessionID, userID, models.ViolationLaptopDetected, laptopDetectionConfidence,
				fmt.Sprintf("Laptop detected during exam: %d found", objects.LaptopCount), metadata))
	}

	var unauthorized []DetectedObject
	for _, obj := range objects.Objects {
		if obj.Label == "" || expectedObjectLabels[obj.Label] {
			continue
		}
		unauthorized = append(unauthorized, obj)
	}

	if len(unauthorized) > 0 {
		labels := make([]string, len(unauthorized))
		for i, obj := range unauthorized {
			labels[i] = obj.Label
		}
		metadata := map[string]interface{}{
			"unauthorized_objects": unauthorized,
			"detection_method":     string(MethodAdvanced),
		}
		violations = append(violations,
			c.newViolation(sessionID, userID, models.ViolationUnauthorizedObject, unauthorizedObjectConfidence,
				fmt.Sprintf("Unauthorized objects detected: %s", strings.Join(labels, ", ")), metadata))
	}

	return violations
}

func (c *Classifier) newViolation(sessionID, userID string, violationType models.ViolationType, confidence float64, description string, metadata map[string]interface{}) models.ViolationEvent {
	rule := RuleFor(violationType)
	return models.ViolationEvent{
		Type:             violationType,
		Severity:         rule.Severity,
		Confidence:       confidence,
		Timestamp:        c.now(),
		SessionID:        sessionID,
		UserID:           userID,
		Description:      description,
		Metadata:         metadata,
		TrustScoreImpact: rule.Weight,
	}
}
