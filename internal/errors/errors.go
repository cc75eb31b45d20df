// Package errors provides centralized error definitions and error handling utilities
// for pyexpl. It defines domain-specific errors for the playground core, semantic
// error types, constructors with context wrapping, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures in a specific subsystem:
//   - PaneError: errors tied to one runner's output pane
//   - TransportError: failures talking to the execution backend
//   - StorageError: failures reading or writing persisted client state
//
// Semantic errors represent common conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists (duplicate runner add)
//   - ValidationError: invalid input or state
//
// # Usage
//
//	err := errors.NewTransportError("run request failed", cause).WithStatus(502)
//	if errors.IsRetryable(err) { ... }
//
//	var exists *errors.AlreadyExistsError
//	if errors.As(err, &exists) { showNotice(exists.Error()) }
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Re-export standard library functions so callers can import only this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for conditions only interesting while debugging
	// (stale responses, storage fallbacks).
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for user mistakes such as adding a runner twice.
	SeverityWarning
	// SeverityError is for real failures such as a dead backend.
	SeverityError
	// SeverityCritical is for errors that make the playground unusable.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Runner and pane sentinel errors
var (
	// ErrRunnerUnknown indicates a runner name the backend does not serve.
	ErrRunnerUnknown = New("unknown runner")
	// ErrPaneExists indicates a pane is already live for a runner.
	ErrPaneExists = New("pane already exists")
	// ErrPaneRemoved indicates an operation on a pane that was already removed.
	ErrPaneRemoved = New("pane removed")
)

// Storage sentinel errors
var (
	// ErrStorageCorrupted indicates persisted state could not be parsed.
	ErrStorageCorrupted = New("stored state corrupted")
	// ErrKeyNotFound indicates a storage key has no value.
	ErrKeyNotFound = New("key not found")
)

// Transport and share sentinel errors
var (
	// ErrTransport indicates a network or protocol failure talking to the backend.
	ErrTransport = New("transport failure")
	// ErrMalformedResponse indicates the backend answered with a body that is not
	// the expected JSON document.
	ErrMalformedResponse = New("malformed response")
	// ErrShareNotFound indicates an unknown shared session id.
	ErrShareNotFound = New("shared session not found")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PlaygroundError is the base interface for all pyexpl errors.
type PlaygroundError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed if repeated.
	IsRetryable() bool

	// IsUserFacing returns true if the message is safe to show in a pane or notice.
	IsUserFacing() bool
}

type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// PaneError represents an error scoped to a single runner pane.
//
// Example:
//
//	err := errors.NewPaneError("render refused", errors.ErrPaneRemoved).WithRunner("python3-13")
//	fmt.Println(err) // "pane error [runner=python3-13]: render refused: pane removed"
type PaneError struct {
	baseError
	RunnerID string
}

// NewPaneError creates a new PaneError.
func NewPaneError(message string, cause error) *PaneError {
	return &PaneError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithRunner adds the runner id to the error context.
func (e *PaneError) WithRunner(id string) *PaneError {
	e.RunnerID = id
	return e
}

// WithSeverity sets the error severity.
func (e *PaneError) WithSeverity(s Severity) *PaneError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *PaneError) Error() string {
	prefix := "pane error"
	if e.RunnerID != "" {
		prefix = fmt.Sprintf("pane error [runner=%s]", e.RunnerID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PaneError) Is(target error) bool {
	if _, ok := target.(*PaneError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TransportError represents a failed exchange with the execution backend:
// connection errors, non-2xx statuses and undecodable bodies.
//
// Example:
//
//	err := errors.NewTransportError("run request failed", nil).
//		WithStatus(502).WithRunner("python3.13").WithBody("bad gateway")
type TransportError struct {
	baseError
	StatusCode int
	Runner     string
	Body       string
}

// NewTransportError creates a new TransportError. Transport errors always
// match ErrTransport.
func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithStatus records the HTTP status code. 5xx, 408 and 429 make the error retryable.
func (e *TransportError) WithStatus(code int) *TransportError {
	e.StatusCode = code
	e.retryable = code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
	return e
}

// WithRunner records the runner label the request was for.
func (e *TransportError) WithRunner(label string) *TransportError {
	e.Runner = label
	return e
}

// WithBody records a (truncated) response body for diagnostics.
func (e *TransportError) WithBody(body string) *TransportError {
	const maxBody = 512
	body = strings.TrimSpace(body)
	if len(body) > maxBody {
		body = body[:maxBody] + "..."
	}
	e.Body = body
	return e
}

// Error returns the formatted error message.
func (e *TransportError) Error() string {
	var parts []string
	if e.Runner != "" {
		parts = append(parts, fmt.Sprintf("runner=%s", e.Runner))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	prefix := "transport error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("transport error [%s]", strings.Join(parts, ", "))
	}
	msg := fmt.Sprintf("%s: %s", prefix, e.message)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Body)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *TransportError) Is(target error) bool {
	if _, ok := target.(*TransportError); ok {
		return true
	}
	if target == ErrTransport {
		return true
	}
	return e.baseError.Is(target)
}

// StorageError represents a failure in the persisted selection store.
// Storage errors are never user-facing: the store degrades to defaults.
type StorageError struct {
	baseError
	Key string
}

// NewStorageError creates a new StorageError.
func NewStorageError(message string, cause error) *StorageError {
	return &StorageError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityDebug,
		},
	}
}

// WithKey adds the storage key to the error context.
func (e *StorageError) WithKey(key string) *StorageError {
	e.Key = key
	return e
}

// Error returns the formatted error message.
func (e *StorageError) Error() string {
	prefix := "storage error"
	if e.Key != "" {
		prefix = fmt.Sprintf("storage error [key=%s]", e.Key)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StorageError) Is(target error) bool {
	if _, ok := target.(*StorageError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("share", "2f1c...")
//	fmt.Println(err) // "share '2f1c...' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a resource that already exists.
//
// Example:
//
//	err := errors.NewAlreadyExistsError("runner", "python3-14")
//	fmt.Println(err) // "runner 'python3-14' already exists"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("`runners` is not a list.").WithField("runners")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      ErrInvalidInput,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField sets the name of the offending field.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue records the offending value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the validation message without the generic cause, since the
// message is shown verbatim to clients.
func (e *ValidationError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition.
// The dispatch engine never retries on its own; this feeds user-facing hints.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr PlaygroundError
	if As(err, &pgErr) {
		return pgErr.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var pgErr PlaygroundError
	if As(err, &pgErr) {
		return pgErr.IsUserFacing()
	}
	return false
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
