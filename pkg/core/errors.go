// Package core provides the error model and HTTP helpers shared by the
// fetch layer and the MCP tools.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorCode defines standard error codes
type ErrorCode string

// Standard error codes
const (
	// Input validation errors
	ErrInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrInvalidAnchor    ErrorCode = "INVALID_ANCHOR"
	ErrInvalidRadius    ErrorCode = "INVALID_RADIUS"
	ErrInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrMissingParameter ErrorCode = "MISSING_PARAMETER"

	// Service errors
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrServiceTimeout     ErrorCode = "SERVICE_TIMEOUT"
	ErrRateLimit          ErrorCode = "RATE_LIMIT"
	ErrNetworkError       ErrorCode = "NETWORK_ERROR"

	// Data errors
	ErrParseError    ErrorCode = "PARSE_ERROR"
	ErrNoElevation   ErrorCode = "NO_ELEVATION"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is a coded error with optional recovery guidance
type Error struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Service  string `json:"service,omitempty"`
	Status   int    `json:"status,omitempty"`
	Guidance string `json:"guidance,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s. %s", e.Code, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new Error with the given code and message
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    string(code),
		Message: message,
	}
}

// WithGuidance adds guidance information to the error
func (e *Error) WithGuidance(guidance string) *Error {
	e.Guidance = guidance
	return e
}

// ToMCPResult converts the error to an MCP tool result
func (e *Error) ToMCPResult() *mcp.CallToolResult {
	errorJSON, err := json.Marshal(e)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ERROR: %s - %s", e.Code, e.Message))
	}
	return mcp.NewToolResultError(string(errorJSON))
}

// AsError extracts a coded error from an error chain, wrapping anything
// else as an internal error
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(ErrInternalError, err.Error())
}

// ServiceError creates an error for external service failures
func ServiceError(service string, statusCode int, message string) *Error {
	var code ErrorCode
	var guidance string

	switch statusCode {
	case http.StatusTooManyRequests:
		code = ErrRateLimit
		guidance = "The service is rate-limited. Please try again in a few moments."
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		code = ErrServiceTimeout
		guidance = "The request timed out. Try reducing the radius or disabling layers."
	case http.StatusBadRequest:
		code = ErrInvalidInput
		guidance = "The request was invalid. Check the anchor and radius."
	case http.StatusNotFound:
		code = ErrServiceUnavailable
		guidance = "The resource does not exist on the server."
	default:
		code = ErrServiceUnavailable
		guidance = "Please try again later."
	}

	e := NewError(code, fmt.Sprintf("%s service error: %s", service, message)).WithGuidance(guidance)
	e.Service = service
	e.Status = statusCode
	return e
}
