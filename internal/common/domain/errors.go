package domain

import (
	"errors"
	"fmt"
)

// Error codes carried by DomainError.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"
	CodeForbidden    = "FORBIDDEN"
	CodeUpstream     = "UPSTREAM_ERROR"
)

// ErrStaleResponse marks a response that was superseded by a newer request and discarded.
var ErrStaleResponse = errors.New("stale response discarded")

// DomainError is a typed error returned by domain and application code.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError returns a VALIDATION_ERROR.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// NewFieldValidationError returns a VALIDATION_ERROR tied to an input field.
func NewFieldValidationError(field, message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message, Field: field}
}

// NewNotFoundError returns a NOT_FOUND error for the given entity and key.
func NewNotFoundError(entity, key string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", entity, key)}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: message}
}

// NewInvalidStateError returns an INVALID_STATE error for a rejected transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Code: CodeInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: message}
}

// NewUpstreamError returns an UPSTREAM_ERROR.
func NewUpstreamError(message string) *DomainError {
	return &DomainError{Code: CodeUpstream, Message: message}
}

// IsValidation reports whether err is (or wraps) a VALIDATION_ERROR.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsNotFound reports whether err is (or wraps) a NOT_FOUND error.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

func hasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
