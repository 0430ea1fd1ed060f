package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type sampleRequest struct {
	SessionID  string  `validate:"required,uuid"`
	Confidence float64 `validate:"gte=0,lte=1"`
}

func TestToValidationErrors(t *testing.T) {
	validate := validator.New()

	err := validate.Struct(sampleRequest{SessionID: "", Confidence: 1.5})
	if err == nil {
		t.Fatal("Expected validation to fail")
	}

	errors := ToValidationErrors(err)
	if len(errors) != 2 {
		t.Fatalf("Expected 2 validation errors, got %d", len(errors))
	}

	if errors[0].Field != "SessionID" || errors[0].Message != "is required" {
		t.Errorf("Unexpected first error: %+v", errors[0])
	}
	if errors[1].Rule != "lte" {
		t.Errorf("Expected lte rule, got %s", errors[1].Rule)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		var ve ValidationErrors
		if ve.Error() != "validation failed" {
			t.Errorf("Unexpected message: %s", ve.Error())
		}
	})

	t.Run("Single", func(t *testing.T) {
		ve := ValidationErrors{{Field: "Confidence", Message: "must be at most 1"}}
		expected := "validation failed: Confidence must be at most 1"
		if ve.Error() != expected {
			t.Errorf("Expected %q, got %q", expected, ve.Error())
		}
	})

	t.Run("Multiple", func(t *testing.T) {
		ve := ValidationErrors{{Field: "A"}, {Field: "B"}}
		if ve.Error() != "validation failed: 2 field errors" {
			t.Errorf("Unexpected message: %s", ve.Error())
		}
	})
}

func TestToValidationErrors_NonValidatorError(t *testing.T) {
	errs := ToValidationErrors(validator.New().Var("ok", "required"))
	if len(errs) != 0 {
		t.Errorf("Expected no errors for passing validation, got %v", errs)
	}
}
