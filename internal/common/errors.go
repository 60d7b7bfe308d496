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
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnreadableDocument = errors.New("no readable text in document")
	ErrInternal           = errors.New("internal error")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("resource not ready")
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

// InvalidInputErrorf builds an AppError in the invalid-input category.
func InvalidInputErrorf(format string, args ...any) error {
	return NewAppError("INVALID_INPUT", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// UnreadableDocumentError reports an input with no extractable text.
func UnreadableDocumentError(message string) error {
	return NewAppError("UNREADABLE_DOCUMENT", message, ErrUnreadableDocument)
}

// HTTPStatus maps an error category to the status code the HTTP surface returns.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnreadableDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
