package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Lookup failures (client-caused)
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeInvalidArtifactType ErrorCode = "INVALID_ARTIFACT_TYPE"
	ErrCodeDuplicateArtifact   ErrorCode = "DUPLICATE_ARTIFACT"

	// Context assembly
	ErrCodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"

	// State machine
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// Response parsing
	ErrCodeEmptyArtifactContent ErrorCode = "EMPTY_ARTIFACT_CONTENT"

	// Provider/transport
	ErrCodeProviderError        ErrorCode = "PROVIDER_ERROR"
	ErrCodeStreamingUnsupported ErrorCode = "STREAMING_UNSUPPORTED"

	// Infrastructure
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrCodeStorageRead   ErrorCode = "STORAGE_READ"
	ErrCodeStorageWrite  ErrorCode = "STORAGE_WRITE"
	ErrCodeInternal      ErrorCode = "INTERNAL"
)

// Error represents a structured specfoundry error
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Context    map[string]any
	Stack      []Frame
	Retryable  bool
}

// Frame represents a stack frame
type Frame struct {
	Function string
	File     string
	Line     int
}

// New creates a new structured error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		Stack:   captureStack(2),
	}
}

// Newf creates a new structured error with a formatted message
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]any),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with specfoundry error context
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Context:    make(map[string]any),
		Stack:      captureStack(2),
	}
}

// WithContext adds context key-value pairs to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRetryable marks the error as retryable
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.Underlying != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Underlying))
	}
	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/errors.As chains
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches errors by code
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// CodeOf extracts the error code from any error, returning ErrCodeInternal
// for errors that did not originate here.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// HTTPStatus maps error codes to boundary response statuses. Client-caused
// codes map to 4xx, provider and internal failures to 5xx.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidArtifactType, ErrCodeMissingDependency, ErrCodeEmptyArtifactContent:
		return http.StatusUnprocessableEntity
	case ErrCodeDuplicateArtifact:
		return http.StatusConflict
	case ErrCodeInvalidTransition, ErrCodeConfigInvalid:
		return http.StatusBadRequest
	case ErrCodeStreamingUnsupported:
		return http.StatusNotImplemented
	case ErrCodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// captureStack captures the current goroutine stack, skipping the given
// number of frames.
func captureStack(skip int) []Frame {
	const maxDepth = 16
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	var stack []Frame
	for {
		frame, more := frames.Next()
		stack = append(stack, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more {
			break
		}
	}
	return stack
}
