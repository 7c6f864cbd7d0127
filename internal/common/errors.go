package common

import (
	"errors"
	"fmt"
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

// Error codes carried by AppError.
const (
	CodeConfig             = "CONFIG_ERROR"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeBackendCall        = "BACKEND_CALL_FAILED"
	CodeOutputValidation   = "OUTPUT_VALIDATION_FAILED"
	CodeInvalidInput       = "INVALID_INPUT"
)

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")

	// ErrBackendUnavailable marks a backend whose credential, binary or engine is missing.
	// It disqualifies that backend only.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendCall marks a process or network failure while talking to a backend.
	ErrBackendCall = errors.New("backend call failed")

	// ErrOutputValidation marks structured output that failed to parse or match its schema.
	ErrOutputValidation = errors.New("output validation failed")

	// ErrConfiguration is fatal at construction time.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrSchedulerClosed is returned for work submitted after shutdown.
	ErrSchedulerClosed = errors.New("scheduler closed")
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

// ConfigError reports a configuration mistake; it always matches ErrConfiguration.
func ConfigError(message string) error {
	return NewAppError(CodeConfig, message, ErrConfiguration)
}

// ConfigErrorf is ConfigError with formatting.
func ConfigErrorf(format string, args ...any) error {
	return ConfigError(fmt.Sprintf(format, args...))
}

// BackendCallError wraps a transport/process failure so callers can match ErrBackendCall.
func BackendCallError(message string, cause error) error {
	return NewAppError(CodeBackendCall, message, errors.Join(ErrBackendCall, cause))
}

// OutputValidationError wraps a schema/parse failure so callers can match ErrOutputValidation.
func OutputValidationError(message string, cause error) error {
	return NewAppError(CodeOutputValidation, message, errors.Join(ErrOutputValidation, cause))
}
