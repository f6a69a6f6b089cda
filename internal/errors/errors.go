// Package errors provides structured error handling for port-scanner operations.
// It defines error codes, error types, and provides utilities for creating
// and handling errors with context and structured information.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Specification errors.
	CodeInvalidSpec     ErrorCode = "INVALID_SPEC"
	CodeHostSpecInvalid ErrorCode = "HOST_SPEC_INVALID"
	CodePortSpecInvalid ErrorCode = "PORT_SPEC_INVALID"
	CodeResolveFailed   ErrorCode = "RESOLVE_FAILED"

	// Discovery and probing errors.
	CodeDiscoveryFailed    ErrorCode = "DISCOVERY_FAILED"
	CodeHostUnreachable    ErrorCode = "HOST_UNREACHABLE"
	CodeNetworkUnreachable ErrorCode = "NETWORK_UNREACHABLE"

	// Aggregation errors.
	CodeIncompleteReport ErrorCode = "INCOMPLETE_REPORT"
)

// SpecError represents a malformed host or port specification. It is fatal
// to the overall scan request and is surfaced before any probing begins.
type SpecError struct {
	Code    ErrorCode
	Message string
	Spec    string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	if e.Spec != "" {
		return fmt.Sprintf("[%s] %s (spec: %s)", e.Code, e.Message, e.Spec)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *SpecError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *SpecError) WithContext(key string, value interface{}) *SpecError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewSpecError creates a new spec error with the specified code and message.
func NewSpecError(code ErrorCode, message string) *SpecError {
	return &SpecError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewSpecErrorWithSpec creates a spec error for a specific spec token.
func NewSpecErrorWithSpec(code ErrorCode, message, spec string) *SpecError {
	return &SpecError{
		Code:    code,
		Message: message,
		Spec:    spec,
		Context: make(map[string]interface{}),
	}
}

// WrapSpecError wraps an existing error as a spec error.
func WrapSpecError(code ErrorCode, message, spec string, err error) *SpecError {
	return &SpecError{
		Code:    code,
		Message: message,
		Spec:    spec,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// ReportError represents a violation of the aggregation contract: a
// requested (host, port) pair never received a result. This indicates the
// scheduler and aggregator desynchronized, not a user input problem.
type ReportError struct {
	Code    ErrorCode
	Message string
	Host    string
	Port    uint16
	Cause   error
}

// Error implements the error interface.
func (e *ReportError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("[%s] %s (pair: %s:%d)", e.Code, e.Message, e.Host, e.Port)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ReportError) Unwrap() error {
	return e.Cause
}

// NewReportError creates a new report error.
func NewReportError(code ErrorCode, message string) *ReportError {
	return &ReportError{
		Code:    code,
		Message: message,
	}
}

// ErrIncompleteReport creates an error for a missing (host, port) result.
func ErrIncompleteReport(host string, port uint16) *ReportError {
	return &ReportError{
		Code:    CodeIncompleteReport,
		Message: "No probe result recorded for requested pair",
		Host:    host,
		Port:    port,
	}
}

// DiscoveryError represents host discovery errors.
type DiscoveryError struct {
	Code    ErrorCode
	Message string
	Host    string
	Method  string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("[%s] %s (host: %s)", e.Code, e.Message, e.Host)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// NewDiscoveryError creates a new discovery error.
func NewDiscoveryError(code ErrorCode, message string) *DiscoveryError {
	return &DiscoveryError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapDiscoveryError wraps an existing error as a discovery error.
func WrapDiscoveryError(code ErrorCode, message, host string, err error) *DiscoveryError {
	return &DiscoveryError{
		Code:    code,
		Message: message,
		Host:    host,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
	}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case *SpecError:
		return e.Code == code
	case *ReportError:
		return e.Code == code
	case *DiscoveryError:
		return e.Code == code
	case *ConfigError:
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *SpecError:
		return e.Code
	case *ReportError:
		return e.Code
	case *DiscoveryError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsInvalidSpec reports whether the error is any flavor of specification
// failure.
func IsInvalidSpec(err error) bool {
	switch GetCode(err) {
	case CodeInvalidSpec, CodeHostSpecInvalid, CodePortSpecInvalid, CodeResolveFailed:
		return true
	default:
		return false
	}
}

// IsFatal determines if an error indicates a fatal condition that should stop execution.
func IsFatal(err error) bool {
	code := GetCode(err)
	switch code {
	case CodeConfiguration, CodeIncompleteReport:
		return true
	default:
		return IsInvalidSpec(err)
	}
}

// Common error creation functions

// ErrInvalidHostSpec creates an error for an unparseable host spec token.
func ErrInvalidHostSpec(spec string) *SpecError {
	return NewSpecErrorWithSpec(CodeHostSpecInvalid, "Invalid host specification", spec)
}

// ErrInvalidPortSpec creates an error for an unparseable port spec token.
func ErrInvalidPortSpec(spec string) *SpecError {
	return NewSpecErrorWithSpec(CodePortSpecInvalid, "Invalid port specification", spec)
}

// ErrResolveFailed creates an error for a hostname that could not be resolved.
func ErrResolveFailed(hostname string, err error) *SpecError {
	return WrapSpecError(CodeResolveFailed, "Hostname resolution failed", hostname, err)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}
