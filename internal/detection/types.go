// Package detection wraps opaque per-frame detector outputs into normalized
// results and classifies them into typed violation events. The computer-vision
// models themselves live behind the adapter boundary; this package only sees
// their structured results.
package detection

// DetectionMethod identifies which detector pipeline produced a result.
// Advanced (model-based) detections carry a lower false-positive risk, so the
// classifier floors their confidence for some violation types.
type DetectionMethod string

const (
	MethodBasic    DetectionMethod = "basic"
	MethodAdvanced DetectionMethod = "advanced"
)

// FaceDetectionResult is the normalized output of the face detector.
type FaceDetectionResult struct {
	FacesDetected int             `json:"faces_detected"`
	Confidence    float64         `json:"confidence"`
	Method        DetectionMethod `json:"detection_method"`
}

// EyeTrackingResult is the normalized output of the gaze tracker.
type EyeTrackingResult struct {
	LookingAway bool    `json:"looking_away"`
	Confidence  float64 `json:"confidence"`
}

// AudioResult is the normalized output of the audio analyzer.
type AudioResult struct {
	AudioDetected bool    `json:"audio_detected"`
	Confidence    float64 `json:"confidence"`
}

// PhoneDetectionResult is the normalized output of the phone detector.
type PhoneDetectionResult struct {
	PhoneDetected bool            `json:"phone_detected"`
	Confidence    float64         `json:"confidence"`
	Method        DetectionMethod `json:"detection_method"`
}

// DetectedObject is one labeled object from the object detector.
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ObjectDetectionResult is the normalized output of the object detector.
type ObjectDetectionResult struct {
	Objects     []DetectedObject `json:"objects"`
	BookCount   int              `json:"book_count"`
	LaptopCount int              `json:"laptop_count"`
}

// FrameData bundles the per-signal results for one processed frame. Every
// field is optional; a nil sub-result means the signal was unavailable for
// this frame and is simply skipped.
type FrameData struct {
	FaceDetection   *FaceDetectionResult   `json:"face_detection,omitempty"`
	EyeTracking     *EyeTrackingResult     `json:"eye_tracking,omitempty"`
	Audio           *AudioResult           `json:"audio_data,omitempty"`
	PhoneDetection  *PhoneDetectionResult  `json:"phone_detection,omitempty"`
	ObjectDetection *ObjectDetectionResult `json:"object_detection,omitempty"`
}

// BrowserEvent is a discrete event reported by the exam-taker's browser.
type BrowserEvent struct {
	Type    string                 `json:"type" validate:"required"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
