// Package errors provides structured error handling for the suggestion engine
// Following enterprise patterns for error management and observability
package errors

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents an error code
type ErrorCode string

// Error codes for the suggestion engine taxonomy
const (
	// Client errors (4xx)
	CodeBadRequest      ErrorCode = "BAD_REQUEST"
	CodeInvalidFilter   ErrorCode = "INVALID_FILTER"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal            ErrorCode = "INTERNAL_ERROR"
	CodeConfigInvalid       ErrorCode = "CONFIG_INVALID"
	CodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	CodeTimeout             ErrorCode = "TIMEOUT"
	CodeCacheError          ErrorCode = "CACHE_ERROR"
	CodeServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"

	// Domain errors
	CodeMealNotFound ErrorCode = "MEAL_NOT_FOUND"
	CodeUserNotFound ErrorCode = "USER_NOT_FOUND"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeInvalidFilter:
		return http.StatusBadRequest
	case CodeNotFound, CodeMealNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeProviderUnavailable, CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the failed request.
// Provider outages and timeouts are transient; filter and config errors
// will fail identically until the input or deployment changes.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeProviderUnavailable, CodeTimeout, CodeServiceUnavailable, CodeCacheError:
		return true
	default:
		return false
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// Predefined error constructors for the engine taxonomy

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewInvalidFilterError creates an invalid filter error. Rejected before
// any provider fetch or scoring work begins.
func NewInvalidFilterError(details string) *AppError {
	return NewAppError(CodeInvalidFilter, "Invalid suggestion filters", details)
}

// NewConfigInvalidError creates an algorithm configuration error. Rejected
// before any scoring work begins.
func NewConfigInvalidError(details string) *AppError {
	return NewAppError(CodeConfigInvalid, "Algorithm configuration invalid", details)
}

// NewProviderUnavailableError creates a provider failure error after the
// bounded retry at the provider-call boundary has been exhausted.
func NewProviderUnavailableError(provider string, cause error) *AppError {
	return NewAppError(
		CodeProviderUnavailable,
		"Data provider unavailable",
		fmt.Sprintf("Failed to fetch from %s provider", provider),
	).WithMetadata("provider", provider).WithCause(cause)
}

// NewTimeoutError creates a request budget timeout error
func NewTimeoutError(operation string, budget time.Duration) *AppError {
	return NewAppError(
		CodeTimeout,
		"Request exceeded time budget",
		fmt.Sprintf("%s did not complete within %s", operation, budget),
	).WithMetadata("operation", operation).WithMetadata("budget_ms", budget.Milliseconds())
}

// NewCacheError creates a cache layer error. Cache failures degrade to
// recomputation, so this surfaces only from explicit cache operations.
func NewCacheError(operation string, cause error) *AppError {
	return NewAppError(
		CodeCacheError,
		"Cache operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", strings.Title(resource))
	}
	return NewAppError(CodeNotFound, message, "")
}

// NewMealNotFoundError creates a meal not found error
func NewMealNotFoundError(mealID string) *AppError {
	return NewAppError(
		CodeMealNotFound,
		"Meal not found",
		fmt.Sprintf("Meal with ID %s does not exist", mealID),
	).WithMetadata("meal_id", mealID)
}

// NewUserNotFoundError creates a user not found error
func NewUserNotFoundError(userID string) *AppError {
	return NewAppError(
		CodeUserNotFound,
		"User not found",
		fmt.Sprintf("User with ID %s does not exist", userID),
	).WithMetadata("user_id", userID)
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternal
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	if len(v) == 1 {
		return v[0].Message
	}

	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}

	return strings.Join(messages, "; ")
}

// NewValidationErrors creates an invalid filter error from field violations
func NewValidationErrors(errors []ValidationError) *AppError {
	validationErrs := ValidationErrors(errors)

	return NewAppError(
		CodeInvalidFilter,
		"Invalid suggestion filters",
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
}
