// Package errors provides structured error types for deployctl.
package errors

import (
	"fmt"
)

// ErrorCode identifies specific error conditions
type ErrorCode string

const (
	ErrCodeConfigLoad          ErrorCode = "CONFIG_LOAD_ERROR"
	ErrCodeImportResolution    ErrorCode = "IMPORT_RESOLUTION_ERROR"
	ErrCodeTargetNotFound      ErrorCode = "TARGET_NOT_FOUND"
	ErrCodeAmbiguousTarget     ErrorCode = "AMBIGUOUS_TARGET"
	ErrCodeRecursiveTarget     ErrorCode = "RECURSIVE_TARGET"
	ErrCodePlaceholderNotFound ErrorCode = "PLACEHOLDER_NOT_FOUND"
	ErrCodeCyclicPlaceholder   ErrorCode = "CYCLIC_PLACEHOLDER"
	ErrCodeExpression          ErrorCode = "EXPRESSION_ERROR"
	ErrCodeTransport           ErrorCode = "TRANSPORT_ERROR"
	ErrCodeBackend             ErrorCode = "BACKEND_ERROR"
	ErrCodeParse               ErrorCode = "PARSE_ERROR"
	ErrCodePlugin              ErrorCode = "PLUGIN_ERROR"
)

// Error is the base error type for deployctl
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Wrap creates a new error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: make(map[string]interface{}),
	}
}

// WithDetail adds a single detail to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// TargetNotFound creates a target resolution error
func TargetNotFound(name string) *Error {
	return &Error{
		Code:    ErrCodeTargetNotFound,
		Message: fmt.Sprintf("target %q not found", name),
		Details: map[string]interface{}{
			"name": name,
		},
	}
}

// AmbiguousTarget creates an error for a name matching more than one target
func AmbiguousTarget(name string, matches int) *Error {
	return &Error{
		Code:    ErrCodeAmbiguousTarget,
		Message: fmt.Sprintf("target name %q matches %d targets", name, matches),
		Details: map[string]interface{}{
			"name":    name,
			"matches": matches,
		},
	}
}

// RecursiveTarget creates an error for a switch target that resolves to itself
func RecursiveTarget(name string) *Error {
	return &Error{
		Code:    ErrCodeRecursiveTarget,
		Message: fmt.Sprintf("switch target %q refers to itself", name),
		Details: map[string]interface{}{
			"name": name,
		},
	}
}

// PlaceholderNotFound creates an error for an unresolvable placeholder
func PlaceholderNotFound(name string) *Error {
	return &Error{
		Code:    ErrCodePlaceholderNotFound,
		Message: fmt.Sprintf("no value found for placeholder %q", name),
		Details: map[string]interface{}{
			"placeholder": name,
		},
	}
}

// CyclicPlaceholder creates an error for placeholder expansion that never settles
func CyclicPlaceholder(template string, depth int) *Error {
	return &Error{
		Code:    ErrCodeCyclicPlaceholder,
		Message: fmt.Sprintf("placeholder expansion exceeded depth %d", depth),
		Details: map[string]interface{}{
			"template": template,
			"depth":    depth,
		},
	}
}

// ParseError creates a parse error
func ParseError(filePath string, err error) *Error {
	return &Error{
		Code:    ErrCodeParse,
		Message: fmt.Sprintf("failed to parse %s", filePath),
		Cause:   err,
		Details: map[string]interface{}{
			"file": filePath,
		},
	}
}

// ExpressionError creates an expression evaluation error
func ExpressionError(expression string, err error) *Error {
	return &Error{
		Code:    ErrCodeExpression,
		Message: fmt.Sprintf("failed to evaluate expression: %s", expression),
		Cause:   err,
		Details: map[string]interface{}{
			"expression": expression,
		},
	}
}

// ImportError creates an error for a single import fragment that failed
func ImportError(source string, err error) *Error {
	return &Error{
		Code:    ErrCodeImportResolution,
		Message: fmt.Sprintf("failed to resolve import %s", source),
		Cause:   err,
		Details: map[string]interface{}{
			"source": source,
		},
	}
}

// TransportError creates a per-file transport error
func TransportError(targetType string, operation string, err error) *Error {
	return &Error{
		Code:    ErrCodeTransport,
		Message: fmt.Sprintf("%s transport failed during %s", targetType, operation),
		Cause:   err,
		Details: map[string]interface{}{
			"type":      targetType,
			"operation": operation,
		},
	}
}

// PluginError creates a plugin selection/instantiation error
func PluginError(plugin string, operation string, err error) *Error {
	return &Error{
		Code:    ErrCodePlugin,
		Message: fmt.Sprintf("plugin %s failed during %s", plugin, operation),
		Cause:   err,
		Details: map[string]interface{}{
			"plugin":    plugin,
			"operation": operation,
		},
	}
}

// BackendError creates a state backend error
func BackendError(backend string, operation string, err error) *Error {
	return &Error{
		Code:    ErrCodeBackend,
		Message: fmt.Sprintf("backend %s failed during %s", backend, operation),
		Cause:   err,
		Details: map[string]interface{}{
			"backend":   backend,
			"operation": operation,
		},
	}
}

// Is checks if the error matches the given code
func Is(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}
