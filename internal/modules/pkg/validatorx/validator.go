package validatorx

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError contains structured information about a single validation error
// This structure is designed to be returned to the API client
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError is a custom error type that wraps one or more FieldErrors
// This allows us to return all validation failures at once
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface for ValidationError
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s)", len(ve.Errors))
}

// Validator is a custom validator for Echo that uses the go-playground/validator library
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a new instance of Validator
// Field names in errors are reported with their json (or form) tag so clients see the names they sent
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return &Validator{validator: v}
}

// Validate implements the echo.Validator interface
// It performs struct validation and, if it fails, returns a custom ValidationError
// containing detailed information about each field error
func (v *Validator) Validate(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		out := ValidationError{
			Errors: make([]FieldError, len(validationErrors)),
		}

		for i, fe := range validationErrors {
			out.Errors[i] = FieldError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Message: msgForTag(fe.Tag(), fe.Param()),
			}
		}
		return out
	}
	return err
}

func msgForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("This field must be at least %s characters long", param)
	case "max":
		return fmt.Sprintf("This field must not exceed %s characters", param)
	case "oneof":
		return fmt.Sprintf("This field must be one of: %s", param)
	case "gt":
		return fmt.Sprintf("This field must be greater than %s", param)
	case "gte":
		return fmt.Sprintf("This field must be greater than or equal to %s", param)
	case "datetime":
		return fmt.Sprintf("This field must be a date formatted as %s", param)
	default:
		return fmt.Sprintf("Failed validation on rule: %s", tag)
	}
}
