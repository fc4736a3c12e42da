package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
)

// Batch processing errors
var (
	ErrInvalidArchive   = errors.New("invalid zip archive")
	ErrNoDocuments      = errors.New("no resume files found in archive")
	ErrExtractionFailed = errors.New("could not extract text from resume")
	ErrClassification   = errors.New("candidate classification failed")
	ErrMissingFields    = errors.New("missing required fields")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error chain onto an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidArchive), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the AppError code in the chain, or fallback.
func ErrorCode(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return fallback
}
