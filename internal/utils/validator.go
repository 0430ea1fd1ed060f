package utils

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/360-proctor/proctoring-service/internal/errors"
	"github.com/360-proctor/proctoring-service/internal/models"
)

// Validator wraps the struct validator with the domain's custom rules
// registered once.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()

	validate.RegisterValidation("violation_type", validateViolationType)
	validate.RegisterValidation("severity", validateSeverity)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("exam_status", validateExamStatus)

	return &Validator{validate: validate}
}

// ValidateStruct validates struct tags and converts failures into the
// API-facing error shape.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

func validateViolationType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, vt := range models.AllViolationTypes() {
		if string(vt) == value {
			return true
		}
	}
	return false
}

func validateSeverity(fl validator.FieldLevel) bool {
	return models.Severity(fl.Field().String()).IsValid()
}

func validateUserRole(fl validator.FieldLevel) bool {
	switch models.UserRole(fl.Field().String()) {
	case models.RoleStudent, models.RoleTeacher, models.RoleProctor, models.RoleAdmin:
		return true
	}
	return false
}

func validateExamStatus(fl validator.FieldLevel) bool {
	switch models.ExamStatus(fl.Field().String()) {
	case models.ExamDraft, models.ExamActive, models.ExamExpired, models.ExamArchived:
		return true
	}
	return false
}
