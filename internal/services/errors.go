package services

import (
	"errors"
	"fmt"

	apperrors "github.com/360-proctor/proctoring-service/internal/errors"
	"github.com/360-proctor/proctoring-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Exam specific errors
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamAccessDenied  = errors.New("access denied to exam")
	ErrExamNotEditable   = errors.New("exam cannot be edited in current status")
	ErrExamNotDeletable  = errors.New("exam cannot be deleted - has existing sessions")
	ErrExamInvalidStatus = errors.New("invalid exam status transition")
	ErrExamNotActive     = errors.New("exam is not active")

	// Session specific errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotOwned    = errors.New("session belongs to another user")
	ErrUserAlreadyInExam  = errors.New("user already has an active session")
	ErrSessionNotComplete = errors.New("session has not completed")

	// Alert specific errors
	ErrAlertNotFound        = errors.New("alert not found")
	ErrAlertAlreadyReviewed = errors.New("alert already reviewed")

	// Notification specific errors
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoRecipients         = errors.New("notification has no recipients")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)

// PermissionError carries the denied subject and action for logging and the
// API error body.
type PermissionError struct {
	UserID   string
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

func NewPermissionError(userID, resource, action, reason string) *PermissionError {
	return &PermissionError{UserID: userID, Resource: resource, Action: action, Reason: reason}
}

// ===== ERROR CLASSIFICATION HELPERS =====

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrAlertNotFound) ||
		errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		repositories.IsNotFoundError(err)
}

func IsPermissionError(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUserAlreadyInExam) ||
		errors.Is(err, ErrAlertAlreadyReviewed) ||
		errors.Is(err, ErrExamInvalidStatus)
}

func IsValidationError(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}
