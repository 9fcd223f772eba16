package tool

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ToolErrorCodeConfigurationMissing is returned when a required setting is absent.
	ToolErrorCodeConfigurationMissing = "CONFIGURATION_MISSING"
	// ToolErrorCodeConfigurationInvalid is returned when a setting is present but unusable.
	ToolErrorCodeConfigurationInvalid = "CONFIGURATION_INVALID"
	// ToolErrorCodeUpstreamFailure is returned when the upstream service or filesystem rejects a request.
	ToolErrorCodeUpstreamFailure = "UPSTREAM_FAILURE"
	// ToolErrorCodeInputInvalid is returned when a caller-supplied parameter fails local validation.
	ToolErrorCodeInputInvalid = "INPUT_INVALID"
	// ToolErrorCodeRegistrationFailure is returned for faults raised while registering an integration.
	ToolErrorCodeRegistrationFailure = "REGISTRATION_FAILURE"
	// ToolErrorCodeActionNotFound is returned when an operation name is missing or unknown.
	ToolErrorCodeActionNotFound = "ACTION_NOT_FOUND"
	// ToolErrorCodeInvocationFailed is a generic fallback for operation failures.
	ToolErrorCodeInvocationFailed = "INVOCATION_FAILED"
)

// ToolError is a structured error that can flow across operations, APIs, and
// diagnostics without losing its machine-readable code.
type ToolError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	msg := strings.TrimSpace(e.Message)
	switch {
	case code == "" && msg == "":
		return ToolErrorCodeInvocationFailed
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewToolError builds a ToolError. An empty message falls back to the cause's text.
func NewToolError(code, message string, retryable bool, cause error) *ToolError {
	cleanCode := strings.TrimSpace(code)
	if cleanCode == "" {
		cleanCode = ToolErrorCodeInvocationFailed
	}
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &ToolError{
		Code:      cleanCode,
		Message:   cleanMsg,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ConfigurationError reports that an integration cannot proceed. Both a
// missing and an invalid configuration share this constructor.
func ConfigurationError(code, message string) *ToolError {
	if code != ToolErrorCodeConfigurationInvalid {
		code = ToolErrorCodeConfigurationMissing
	}
	return NewToolError(code, message, false, nil)
}

// InputError reports a parameter that failed local validation.
func InputError(format string, args ...any) *ToolError {
	return NewToolError(ToolErrorCodeInputInvalid, fmt.Sprintf(format, args...), false, nil)
}

// UpstreamError reports a rejected upstream request. The message is passed
// through to callers verbatim.
func UpstreamError(message string, retryable bool, cause error) *ToolError {
	return NewToolError(ToolErrorCodeUpstreamFailure, message, retryable, cause)
}

// WithDetails merges details into err and returns it.
func WithDetails(err *ToolError, details map[string]any) *ToolError {
	if err == nil {
		return nil
	}
	if len(details) == 0 {
		return err
	}
	if err.Details == nil {
		err.Details = make(map[string]any, len(details))
	}
	for key, value := range details {
		err.Details[key] = value
	}
	return err
}

// AsToolError extracts a *ToolError from err's chain.
func AsToolError(err error) (*ToolError, bool) {
	if err == nil {
		return nil, false
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// CodeOf returns the ToolError code carried by err, or "" when there is none.
func CodeOf(err error) string {
	if toolErr, ok := AsToolError(err); ok && toolErr != nil {
		return toolErr.Code
	}
	return ""
}

// messageOf returns the human message of err without the code prefix.
func messageOf(err error) string {
	if err == nil {
		return ""
	}
	if toolErr, ok := AsToolError(err); ok && toolErr != nil && strings.TrimSpace(toolErr.Message) != "" {
		return toolErr.Message
	}
	return err.Error()
}
