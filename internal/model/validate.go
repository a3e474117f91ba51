package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError holds a list of field-level validation errors. It is
// returned before any network call is made.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateStruct runs tag validation on v and converts the result to a
// *ValidationError.
func validateStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var ve ValidationError
	for _, fe := range verrs {
		ve.add(fe.Field(), "%s", describeTag(fe))
	}
	return ve.orNil()
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return fmt.Sprintf("%q is not a valid email address", fe.Value())
	case "max":
		return "must be " + fe.Param() + " characters or fewer"
	case "len":
		return "must be " + fe.Param() + " characters"
	case "uppercase":
		return "must be uppercase"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}

// ValidateIdentity checks the login name and email.
func ValidateIdentity(id Identity) error {
	id.Name = strings.TrimSpace(id.Name)
	id.Email = strings.TrimSpace(id.Email)
	return validateStruct(id)
}

// ValidateLocationSearch checks location search parameters.
func ValidateLocationSearch(p *LocationSearchParams) error {
	return validateStruct(p)
}

// ValidateBatch rejects an id or zip code list larger than MaxBatch.
func ValidateBatch(field string, items []string) error {
	var ve ValidationError
	if len(items) > MaxBatch {
		ve.add(field, "at most %d allowed per request, got %d", MaxBatch, len(items))
	}
	for i, it := range items {
		if strings.TrimSpace(it) == "" {
			ve.add(field, "entry %d is empty", i)
			break
		}
	}
	return ve.orNil()
}

// ValidateAgeRange checks inclusive age bounds.
func ValidateAgeRange(minAge, maxAge int) error {
	var ve ValidationError
	if minAge < 0 {
		ve.add("ageMin", "must be non-negative, got %d", minAge)
	}
	if maxAge < 0 {
		ve.add("ageMax", "must be non-negative, got %d", maxAge)
	}
	if minAge > maxAge {
		ve.add("ageMin", "must not exceed ageMax (%d > %d)", minAge, maxAge)
	}
	return ve.orNil()
}
