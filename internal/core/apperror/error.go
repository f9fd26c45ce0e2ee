// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal          = "INTERNAL_ERROR"
	CodeUpstream          = "UPSTREAM_ERROR"
	CodeBudgetUnavailable = "BUDGET_UNAVAILABLE"

	// Validation errors (400 / 422)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeBusinessRule    = "BUSINESS_RULE_VIOLATION"
	CodeBudgetExceeded  = "BUDGET_EXCEEDED"
	CodeFIFOPriceLocked = "FIFO_PRICE_LOCKED"
	CodeMissingIdentity = "MISSING_IDENTITY"

	// Authorization errors (401)
	CodeUnauthorized = "UNAUTHORIZED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, amounts, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidDocument creates a document validation error (422) carrying the
// field-keyed error map and its summary.
func NewInvalidDocument(fields map[string]string, summary string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    summary,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"fields": fields},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewMissingIdentity is returned when no requester id can be resolved.
func NewMissingIdentity() *AppError {
	return &AppError{
		Code:       CodeMissingIdentity,
		Message:    "Requester could not be determined. Select a requester or sign in again.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInvalidState creates an error for an action not allowed in the current form state (409).
func NewInvalidState(state, action string) *AppError {
	return &AppError{
		Code:       CodeInvalidState,
		Message:    fmt.Sprintf("cannot %s while form is %s", action, state),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"state": state, "action": action},
	}
}

// NewUpstream wraps a backend failure. Message is the server-provided text when available.
func NewUpstream(status int, message string) *AppError {
	if message == "" {
		message = "Backend request failed"
	}
	httpStatus := http.StatusBadGateway
	if status >= 400 && status < 500 {
		httpStatus = status
	}
	return &AppError{
		Code:       CodeUpstream,
		Message:    message,
		HTTPStatus: httpStatus,
		Details:    map[string]any{"upstream_status": status},
	}
}

// NewBudgetUnavailable is returned when a linked request's remaining budget
// has not been loaded, so the budget guard cannot be evaluated (503).
func NewBudgetUnavailable() *AppError {
	return &AppError{
		Code:       CodeBudgetUnavailable,
		Message:    "Budget of the parent request is not loaded yet. Try again shortly.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
