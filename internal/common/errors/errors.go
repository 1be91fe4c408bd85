// Package errors provides the standardized error model shared by the workflow
// core, the HTTP API and the Zeebe job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeSlotConflict      ErrorCode = "SLOT_CONFLICT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeSideEffectFailure ErrorCode = "SIDE_EFFECT_FAILURE"
	ErrCodeForbiddenAction   ErrorCode = "FORBIDDEN_ACTION"
	ErrCodeDuplicateRef      ErrorCode = "DUPLICATE_REFERENCE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeEngineUnavailable      ErrorCode = "ENGINE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so callers can write
// errors.Is(err, errors.ErrSlotConflict).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a metadata key and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidTransition = &StandardError{Code: ErrCodeInvalidTransition}
	ErrValidation        = &StandardError{Code: ErrCodeValidation}
	ErrSlotConflict      = &StandardError{Code: ErrCodeSlotConflict}
	ErrNotFound          = &StandardError{Code: ErrCodeNotFound}
	ErrSideEffectFailure = &StandardError{Code: ErrCodeSideEffectFailure}
	ErrForbiddenAction   = &StandardError{Code: ErrCodeForbiddenAction}
	ErrDuplicateRef      = &StandardError{Code: ErrCodeDuplicateRef}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInvalidTransitionError is returned when an action's precondition state does not hold.
func NewInvalidTransitionError(action, current string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Action not allowed in the current application status",
		Details:   fmt.Sprintf("action: %s, status: %s", action, current),
		Retryable: false,
		Metadata:  map[string]interface{}{"action": action, "status": current},
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports a malformed or incomplete request.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewSlotConflictError reports an interview slot that another application holds.
func NewSlotConflictError(date, clock string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSlotConflict,
		Message:   "Interview slot is no longer available",
		Details:   fmt.Sprintf("date: %s, time: %s", date, clock),
		Retryable: false,
		Metadata:  map[string]interface{}{"date": date, "time": clock},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports an unknown application id or reference.
func NewNotFoundError(resource, key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   key,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSideEffectFailureError reports a best-effort effect that failed after the state write.
func NewSideEffectFailureError(effect string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSideEffectFailure,
		Message:   fmt.Sprintf("Side effect '%s' failed", effect),
		Details:   errString(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"effect": effect},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewForbiddenActionError reports a role attempting an action it never owns.
func NewForbiddenActionError(role, action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbiddenAction,
		Message:   "Role is not authorized for this action",
		Details:   fmt.Sprintf("role: %s, action: %s", role, action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateReferenceError reports a reference number that is already assigned.
func NewDuplicateReferenceError(ref string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateRef,
		Message:   "Reference number already assigned",
		Details:   ref,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseError wraps a retryable persistence failure.
func NewDatabaseError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert failed",
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Failed to send notification",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search query failed",
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewEngineError wraps a failed call to the Zeebe gateway.
func NewEngineError(operation string, err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeEngineUnavailable,
		Message:   "Workflow engine request failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Conversions
// ==========================

// AsStandard normalizes any error to a *StandardError.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// CodeOf returns the error code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsStandard(err).Code
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeEngineUnavailable:
		return 3
	case ErrCodeSideEffectFailure:
		return 1
	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// HTTPStatus maps an error code to the HTTP status the API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidTransition, ErrCodeSlotConflict, ErrCodeDuplicateRef:
		return http.StatusConflict
	case ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeForbiddenAction:
		return http.StatusForbidden
	case ErrCodeSideEffectFailure:
		return http.StatusOK
	case ErrCodeDatabaseConnectionFailed, ErrCodeSearchQueryFailed, ErrCodeEngineUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "SLOT") || strings.Contains(codeStr, "FORBIDDEN"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "SIDE_EFFECT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "ENGINE"):
		return "ENGINE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	default:
		return "OTHER"
	}
}
