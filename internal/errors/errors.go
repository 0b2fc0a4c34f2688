package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeModelNotReady ErrorType = "model_not_ready"
	ErrorTypeModelLoad     ErrorType = "model_load"
	ErrorTypeClassify      ErrorType = "classify"
	ErrorTypeImageDecode   ErrorType = "image_decode"
	ErrorTypeNoImage       ErrorType = "no_image"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeStale         ErrorType = "stale"
	ErrorTypeInternal      ErrorType = "internal"
)

// Sentinels for errors.Is; an AppError matches any sentinel of the same type.
var (
	ErrModelNotReady = &AppError{Type: ErrorTypeModelNotReady, Message: "model is not ready"}
	ErrNoImage       = &AppError{Type: ErrorTypeNoImage, Message: "no image selected"}
	ErrStale         = &AppError{Type: ErrorTypeStale, Message: "result is stale"}
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewModelNotReadyError creates a new model-not-ready error
func NewModelNotReadyError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeModelNotReady, Message: message, Cause: cause}
}

// NewModelLoadError creates a new model load error
func NewModelLoadError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeModelLoad, Message: message, Cause: cause}
}

// NewClassifyError creates a new classification error
func NewClassifyError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeClassify, Message: message, Cause: cause}
}

// NewImageDecodeError creates a new image decode error
func NewImageDecodeError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeImageDecode, Message: message, Cause: cause}
}

// NewNoImageError creates a new no-image error
func NewNoImageError(message string) *AppError {
	return &AppError{Type: ErrorTypeNoImage, Message: message}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Cause: cause}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Message: message, Cause: cause}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeTimeout, Message: message, Cause: cause}
}

// NewStaleError creates a new stale-result error
func NewStaleError(message string) *AppError {
	return &AppError{Type: ErrorTypeStale, Message: message}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Cause: cause}
}

// IsType checks if the error, or any error it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// TypeOf returns the type of the outermost AppError in the chain, or internal.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}
