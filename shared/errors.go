package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory classifies failures so callers can decide whether to
// surface, retry, or swallow them.
type ErrorCategory string

const (
	ErrorCategoryValidation ErrorCategory = "validation"         // bad input shape, rejected before any mutation
	ErrorCategoryConflict   ErrorCategory = "conflict"           // duplicate link / tag name
	ErrorCategoryNotFound   ErrorCategory = "not_found"          // missing record, or detected-as-closed posting
	ErrorCategoryForbidden  ErrorCategory = "forbidden"          // permission denied
	ErrorCategoryUpstream   ErrorCategory = "upstream"           // fetch or AI call failed
	ErrorCategoryMalformed  ErrorCategory = "malformed_upstream" // AI output not parseable / not valid
	ErrorCategoryDatabase   ErrorCategory = "database"
)

// ServiceError is the standardized error every public operation returns on
// failure: a category, a stable code, and a human-readable message.
type ServiceError struct {
	Category  ErrorCategory `json:"category"`
	Code      string        `json:"code"`
	Message   string        `json:"message"`
	Details   interface{}   `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Operation string        `json:"operation"`
	Retryable bool          `json:"retryable"`
	Cause     error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:  category,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Operation: operation,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ValidationError creates a validation-category error.
func ValidationError(operation, message string) *ServiceError {
	return NewServiceError(ErrorCategoryValidation, "INVALID_INPUT", message, operation, false, nil)
}

// ConflictError creates a conflict-category error.
func ConflictError(operation, message string) *ServiceError {
	return NewServiceError(ErrorCategoryConflict, "DUPLICATE", message, operation, false, nil)
}

// NotFoundError creates a not-found-category error.
func NotFoundError(operation, message string) *ServiceError {
	return NewServiceError(ErrorCategoryNotFound, "NOT_FOUND", message, operation, false, nil)
}

// ForbiddenError creates a forbidden-category error.
func ForbiddenError(operation, message string) *ServiceError {
	return NewServiceError(ErrorCategoryForbidden, "FORBIDDEN", message, operation, false, nil)
}

// UpstreamError wraps a failed external call (fetch, AI completion).
func UpstreamError(operation, message string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryUpstream, "UPSTREAM_FAILURE", message, operation, true, cause)
}

// MalformedUpstreamError wraps AI output that could not be parsed as the
// expected structure.
func MalformedUpstreamError(operation, message string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryMalformed, "MALFORMED_OUTPUT", message, operation, false, cause)
}

// DatabaseError wraps a store failure.
func DatabaseError(operation string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryDatabase, "DATABASE_FAILURE", cause.Error(), operation, true, cause)
}

// CategoryOf returns the category of err, or ErrorCategoryDatabase for
// unclassified errors.
func CategoryOf(err error) ErrorCategory {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Category
	}
	return ErrorCategoryDatabase
}

// StatusOf maps an error to the HTTP status handlers should respond with.
func StatusOf(err error) int {
	switch CategoryOf(err) {
	case ErrorCategoryValidation:
		return 400
	case ErrorCategoryMalformed:
		return 400
	case ErrorCategoryForbidden:
		return 403
	case ErrorCategoryNotFound:
		return 404
	case ErrorCategoryConflict:
		return 409
	case ErrorCategoryUpstream:
		return 502
	default:
		return 500
	}
}

// ReportException forwards a caught-and-swallowed failure to the
// process-wide exception log. Callers use this where a failure must not
// unwind through the pipeline (e.g. best-effort fetches during submission).
func ReportException(operation string, err error) {
	if err == nil {
		return
	}

	fields := logrus.Fields{
		"operation": operation,
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		fields["error_category"] = svcErr.Category
		fields["error_code"] = svcErr.Code
		fields["retryable"] = svcErr.Retryable
		if svcErr.Cause != nil {
			fields["underlying_error"] = svcErr.Cause
		}
	}

	logrus.WithFields(fields).WithError(err).Error("Reported exception")
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Retryable
	}
	return false
}
