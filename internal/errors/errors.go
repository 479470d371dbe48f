package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParse              ErrorType = "PARSE"
	ErrTypeInvalidMarket      ErrorType = "INVALID_MARKET"
	ErrTypeOutOfRange         ErrorType = "OUT_OF_RANGE"
	ErrTypeInvalidPrice       ErrorType = "INVALID_PRICE"
	ErrTypeInsufficientSample ErrorType = "INSUFFICIENT_SAMPLE"
	ErrTypeValidation         ErrorType = "VALIDATION"
	ErrTypeConfig             ErrorType = "CONFIG"
	ErrTypeStorage            ErrorType = "STORAGE"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err (or anything it wraps) is an AppError of
// the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// TypeOf returns the error type of err, or "" when err is not an AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Helper functions for common error types

// NewParseError creates a per-item parse error. Parse errors are skipped
// with a count and never abort the batch.
func NewParseError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParse, message, cause)
}

// NewInvalidMarketError creates an unknown-market calendar error.
// Calendar misconfiguration aborts the entire run.
func NewInvalidMarketError(marketID string) *AppError {
	return NewAppError(ErrTypeInvalidMarket, fmt.Sprintf("unknown market %q", marketID), nil).
		WithContext("market_id", marketID)
}

// NewOutOfRangeError creates an error for dates outside the loaded
// calendar range. Calendars never extrapolate past their loaded bounds.
func NewOutOfRangeError(message string) *AppError {
	return NewAppError(ErrTypeOutOfRange, message, nil)
}

// NewInvalidPriceError creates a non-positive-price error. Fatal for the
// affected symbol's series only; other symbols continue.
func NewInvalidPriceError(symbol, message string) *AppError {
	return NewAppError(ErrTypeInvalidPrice, message, nil).
		WithContext("symbol", symbol)
}

// NewInsufficientSampleError creates an error for correlation requests
// with too few joined rows. Reported per lag; other lags continue.
func NewInsufficientSampleError(got, want int) *AppError {
	return NewAppError(ErrTypeInsufficientSample,
		fmt.Sprintf("sample size %d below minimum %d", got, want), nil).
		WithContext("sample_size", got).
		WithContext("min_sample_size", want)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}
