package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yieldland/production-core/internal/domain"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

// Global validator instance
var validate *Validator

// InitValidator initializes the global validator
func InitValidator() {
	v := validator.New()

	_ = v.RegisterValidation("resource_type", validateResourceType)
	_ = v.RegisterValidation("tool_output", validateToolOutput)
	_ = v.RegisterValidation("land_kind", validateLandKind)

	validate = &Validator{validate: v}
}

// GetValidator returns the global validator instance
func GetValidator() *Validator {
	if validate == nil {
		InitValidator()
	}
	return validate
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationError formats validation errors into a field map without
// leaking internal struct names.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["error"] = "Invalid request format"
		return errs
	}

	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			errs[field] = "This field is required"
		case "resource_type":
			errs[field] = "Invalid resource type"
		case "tool_output":
			errs[field] = "Invalid tool type"
		case "land_kind":
			errs[field] = "Invalid land kind"
		case "max":
			errs[field] = fmt.Sprintf("Must be at most %s", e.Param())
		case "min":
			errs[field] = fmt.Sprintf("Must be at least %s", e.Param())
		case "gt":
			errs[field] = fmt.Sprintf("Must be greater than %s", e.Param())
		default:
			errs[field] = "Invalid value"
		}
	}

	return errs
}

func validateResourceType(fl validator.FieldLevel) bool {
	return domain.ResourceType(fl.Field().String()).Valid()
}

// validateToolOutput accepts tool-producing synthesis outputs only.
func validateToolOutput(fl validator.FieldLevel) bool {
	_, ok := domain.SynthesisOutput(fl.Field().String()).ToolType()
	return ok
}

func validateLandKind(fl validator.FieldLevel) bool {
	return domain.LandKind(fl.Field().String()).Valid()
}
