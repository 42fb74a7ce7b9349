package types

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// ErrorCode is drawn from the closed set declared in error_codes.go.
type ErrorCode string

// Severity tells an outer layer whether a failure is blocking.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AppError is the base record shared by every error in the hierarchy.
// Message carries the technical detail, UserMessage is safe to display.
type AppError struct {
	Code        ErrorCode      `json:"code"`
	Message     string         `json:"message"`
	UserMessage string         `json:"user_message"`
	Severity    Severity       `json:"severity"`
	Recoverable bool           `json:"recoverable"`
	Retryable   bool           `json:"retryable"`
	Context     map[string]any `json:"context,omitempty"`
	Cause       error          `json:"-"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Typed is implemented by AppError and all of its specializations.
type Typed interface {
	error
	Base() *AppError
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Base returns the receiver. Specializations inherit it through embedding.
func (e *AppError) Base() *AppError {
	return e
}

// WithCause sets the underlying cause.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithUserMessage overrides the display text.
func (e *AppError) WithUserMessage(msg string) *AppError {
	if msg != "" {
		e.UserMessage = msg
	}
	return e
}

// WithRetryable overrides the retryable flag.
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

// WithContext sets a single context key, replacing any previous value.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// MergeContext adds keys that are not already present. Existing keys win.
func (e *AppError) MergeContext(ctx map[string]any) {
	if len(ctx) == 0 {
		return
	}
	if e.Context == nil {
		e.Context = make(map[string]any, len(ctx))
	}
	for k, v := range ctx {
		if _, exists := e.Context[k]; !exists {
			e.Context[k] = v
		}
	}
}

// ContextSnapshot returns a copy of the context map.
func (e *AppError) ContextSnapshot() map[string]any {
	return maps.Clone(e.Context)
}

// NetworkError is a connectivity failure observed before or during a call.
type NetworkError struct {
	AppError
	IsOffline bool `json:"is_offline"`
}

// APIError is a failure reported by a vendor API.
type APIError struct {
	AppError
	StatusCode int    `json:"status_code,omitempty"`
	Provider   string `json:"provider,omitempty"`
}

// AuthError is an authentication failure of the hosting application.
type AuthError struct {
	AppError
	AuthProvider string `json:"auth_provider,omitempty"`
}

// ValidationError rejects caller input before any I/O happens.
type ValidationError struct {
	AppError
	Field string `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
}

func newBase(code ErrorCode, message string, cause error) AppError {
	return AppError{
		Code:        code,
		Message:     message,
		UserMessage: UserMessageFor(code),
		Severity:    DefaultSeverity(code),
		Recoverable: DefaultRecoverable(code),
		Retryable:   DefaultRetryable(code),
		Cause:       cause,
		Timestamp:   time.Now(),
	}
}

// NewAppError creates a plain AppError with table defaults for code.
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	e := newBase(code, message, cause)
	return &e
}

// NewNetworkError creates a NetworkError.
func NewNetworkError(code ErrorCode, message string, cause error) *NetworkError {
	return &NetworkError{
		AppError:  newBase(code, message, cause),
		IsOffline: code == ErrNetworkOffline,
	}
}

// NewAPIError creates an APIError for the given HTTP status and provider.
func NewAPIError(code ErrorCode, message string, statusCode int, provider string, cause error) *APIError {
	e := &APIError{
		AppError:   newBase(code, message, cause),
		StatusCode: statusCode,
		Provider:   provider,
	}
	if provider != "" {
		e.WithContext("provider", provider)
	}
	return e
}

// NewAuthError creates an AuthError.
func NewAuthError(code ErrorCode, message, authProvider string, cause error) *AuthError {
	return &AuthError{
		AppError:     newBase(code, message, cause),
		AuthProvider: authProvider,
	}
}

// NewValidationError creates a ValidationError for a rejected field.
func NewValidationError(code ErrorCode, message, field string, value any) *ValidationError {
	return &ValidationError{
		AppError: newBase(code, message, nil),
		Field:    field,
		Value:    value,
	}
}

// AsAppError finds the first error in err's chain that belongs to the
// hierarchy and returns its base record.
func AsAppError(err error) (*AppError, bool) {
	var typed Typed
	if errors.As(err, &typed) {
		return typed.Base(), true
	}
	return nil, false
}

// IsRetryable checks if an error is a typed, retryable error.
func IsRetryable(err error) bool {
	if e, ok := AsAppError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsAppError(err); ok {
		return e.Code
	}
	return ""
}

// UserMessageOf returns the display text of a typed error, or the generic
// unknown-error text for anything else.
func UserMessageOf(err error) string {
	if e, ok := AsAppError(err); ok && e.UserMessage != "" {
		return e.UserMessage
	}
	return UserMessageFor(ErrUnknown)
}
