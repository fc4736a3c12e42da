package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Fields returns the names of the fields that failed, in the order they were checked.
func (v *Validator) Fields() []string {
	out := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		if !slices.Contains(out, err.Field) {
			out = append(out, err.Field)
		}
	}
	return out
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Err returns an AppError wrapping ErrValidation, or nil when every rule passed.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError("VALIDATION_ERROR", v.ErrorMessage(), ErrValidation)
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	}
	return nil
}

// AtLeast builds a rule rejecting integers below min.
func AtLeast(min int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		n, ok := value.(int)
		if !ok {
			return &ValidationError{Field: fieldName, Value: value, Message: "must be an integer"}
		}
		if n < min {
			return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("must be at least %d", min)}
		}
		return nil
	}
}

// OneOf builds a rule that accepts only the listed values.
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := stringValue(value)
		if !ok {
			return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
		}
		if !slices.Contains(allowed, str) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: "must be one of " + strings.Join(allowed, ", "),
			}
		}
		return nil
	}
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v != nil {
			return *v, true
		}
	}
	return "", false
}
