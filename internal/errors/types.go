package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeClassification ErrorType = "classification"
	ErrorTypeUnsupported    ErrorType = "unsupported"
	ErrorTypeChannel        ErrorType = "channel"
	ErrorTypeBuild          ErrorType = "build"
	ErrorTypeIO             ErrorType = "io"
	ErrorTypeInternal       ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeConfigInvalid        = "ERR_CONFIG_INVALID"
	ErrCodeAmbiguousMarker      = "ERR_AMBIGUOUS_CLASSIFICATION"
	ErrCodeDuplicateResource    = "ERR_DUPLICATE_RESOURCE"
	ErrCodeUnsupportedReference = "ERR_UNSUPPORTED_REFERENCE"
	ErrCodeChannelClosed        = "ERR_CHANNEL_CLOSED"
	ErrCodeBuildFailed          = "ERR_BUILD_FAILED"
	ErrCodeIO                   = "ERR_IO"
	ErrCodeInternalError        = "ERR_INTERNAL"
)

// DocpackError is a structured error type with context.
type DocpackError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *DocpackError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DocpackError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same type and code. This lets the
// exported sentinels below be used with errors.Is.
func (e *DocpackError) Is(target error) bool {
	var t *DocpackError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *DocpackError) WithContext(key string, value interface{}) *DocpackError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *DocpackError) WithLocation(filePath string, line, column int) *DocpackError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithComponent adds component context.
func (e *DocpackError) WithComponent(component string) *DocpackError {
	e.Component = component

	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfiguration           = &DocpackError{Type: ErrorTypeConfig, Code: ErrCodeConfigInvalid}
	ErrAmbiguousClassification = &DocpackError{Type: ErrorTypeClassification, Code: ErrCodeAmbiguousMarker}
	ErrDuplicateResource       = &DocpackError{Type: ErrorTypeClassification, Code: ErrCodeDuplicateResource}
	ErrUnsupportedReference    = &DocpackError{Type: ErrorTypeUnsupported, Code: ErrCodeUnsupportedReference}
	ErrChannelClosed           = &DocpackError{Type: ErrorTypeChannel, Code: ErrCodeChannelClosed}
	ErrBuildEngine             = &DocpackError{Type: ErrorTypeBuild, Code: ErrCodeBuildFailed}
	ErrIO                      = &DocpackError{Type: ErrorTypeIO, Code: ErrCodeIO}
)

// Error creation functions

// NewConfigError creates a configuration error.
func NewConfigError(message string) *DocpackError {
	return &DocpackError{
		Type:        ErrorTypeConfig,
		Code:        ErrCodeConfigInvalid,
		Message:     message,
		Recoverable: false,
	}
}

// NewAmbiguousClassificationError reports an element carrying both markers.
func NewAmbiguousClassificationError(tag, ref string) *DocpackError {
	return (&DocpackError{
		Type:        ErrorTypeClassification,
		Code:        ErrCodeAmbiguousMarker,
		Message:     fmt.Sprintf("<%s> %q cannot be both static resource and bundle target", tag, ref),
		Recoverable: false,
	}).WithContext("tag", tag).WithContext("reference", ref)
}

// NewDuplicateResourceError reports a path registered with conflicting roles.
func NewDuplicateResourceError(path, message string) *DocpackError {
	return &DocpackError{
		Type:        ErrorTypeClassification,
		Code:        ErrCodeDuplicateResource,
		Message:     message,
		FilePath:    path,
		Recoverable: false,
	}
}

// NewUnsupportedReferenceError reports a reference the classifier refuses to handle.
func NewUnsupportedReferenceError(tag, ref, message string) *DocpackError {
	return (&DocpackError{
		Type:        ErrorTypeUnsupported,
		Code:        ErrCodeUnsupportedReference,
		Message:     message,
		Recoverable: false,
	}).WithContext("tag", tag).WithContext("reference", ref)
}

// NewChannelClosedError creates the error returned by a send on a closed channel.
func NewChannelClosedError() *DocpackError {
	return &DocpackError{
		Type:        ErrorTypeChannel,
		Code:        ErrCodeChannelClosed,
		Message:     "send called on already closed channel",
		Recoverable: false,
	}
}

// NewBuildError creates a build error.
func NewBuildError(message string, cause error) *DocpackError {
	return &DocpackError{
		Type:        ErrorTypeBuild,
		Code:        ErrCodeBuildFailed,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(path, message string, cause error) *DocpackError {
	return &DocpackError{
		Type:        ErrorTypeIO,
		Code:        ErrCodeIO,
		Message:     message,
		Cause:       cause,
		FilePath:    path,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *DocpackError {
	return &DocpackError{
		Type:        ErrorTypeInternal,
		Code:        ErrCodeInternalError,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var de *DocpackError
	if errors.As(err, &de) {
		return de.Recoverable
	}

	return false
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

// IsClassificationError checks if an error came out of document classification.
func IsClassificationError(err error) bool {
	return hasType(err, ErrorTypeClassification) || hasType(err, ErrorTypeUnsupported)
}

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool {
	return hasType(err, ErrorTypeBuild)
}

func hasType(err error, t ErrorType) bool {
	var de *DocpackError
	if errors.As(err, &de) {
		return de.Type == t
	}

	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error with appropriate logging.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var de *DocpackError
	if errors.As(err, &de) {
		h.handleDocpackError(ctx, de)
	} else {
		h.logger.Error(ctx, err, "Unhandled error occurred")
	}
}

func (h *ErrorHandler) handleDocpackError(ctx context.Context, err *DocpackError) {
	switch err.Type {
	case ErrorTypeBuild:
		h.logger.Warn(ctx, err, "Build error occurred",
			"type", err.Type,
			"code", err.Code,
			"file", err.FilePath)
	case ErrorTypeClassification, ErrorTypeUnsupported:
		h.logger.Error(ctx, err, "Document classification failed",
			"type", err.Type,
			"code", err.Code,
			"context", err.Context)
	default:
		if IsRecoverable(err) {
			h.logger.Warn(ctx, err, "Recoverable error occurred",
				"type", err.Type,
				"code", err.Code,
				"component", err.Component)
			return
		}
		h.logger.Error(ctx, err, "Error occurred",
			"type", err.Type,
			"code", err.Code,
			"component", err.Component)
	}
}
