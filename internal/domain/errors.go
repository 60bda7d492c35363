package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
	// Fields holds per-field validation messages, keyed by request parameter name.
	Fields map[string]string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, e.fieldSummary())
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches two DomainErrors by code so sentinel comparisons survive wrapping.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

func (e *DomainError) fieldSummary() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return strings.Join(parts, "; ")
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error carrying field-level messages.
func NewValidationError(fields map[string]string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: "invalid search parameters",
		Fields:  fields,
	}
}

// Common domain error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInvalidCell         = "INVALID_CELL"
	ErrCodeUpstream            = "UPSTREAM_ERROR"
	ErrCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	ErrCodeWeightConfiguration = "WEIGHT_CONFIGURATION"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Sentinels. Compare with errors.Is; codes match even when messages carry detail.
var (
	ErrValidation          = NewDomainError(ErrCodeValidation, "")
	ErrInvalidCell         = NewDomainError(ErrCodeInvalidCell, "")
	ErrUpstream            = NewDomainError(ErrCodeUpstream, "")
	ErrUpstreamTimeout     = NewDomainError(ErrCodeUpstreamTimeout, "")
	ErrWeightConfiguration = NewDomainError(ErrCodeWeightConfiguration, "")
	ErrPlaceNotFound       = NewDomainError(ErrCodeNotFound, "place not found")
	ErrSearchNotFound      = NewDomainError(ErrCodeNotFound, "search not found")
)

// IsRetryable reports whether the caller may retry the request unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstream) || errors.Is(err, ErrUpstreamTimeout)
}
