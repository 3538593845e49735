package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeUnconfigured   ErrorType = "unconfigured"
	ErrorTypeUpstream       ErrorType = "upstream_error"
	ErrorTypeServerError    ErrorType = "server_error"
)

// UpstreamErrorPrefix starts every message describing a failed model call.
const UpstreamErrorPrefix = "Error calling OpenAI API: "

// UnconfiguredMessage is reported when no provider API key is set.
const UnconfiguredMessage = "OPENAI_API_KEY not configured"

// APIError represents a structured API error. Only Message reaches the
// client; Type selects the HTTP status and Param aids logging.
type APIError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewErrorResponse wraps an APIError for serialization.
func NewErrorResponse(err *APIError) ErrorResponse {
	return ErrorResponse{Detail: err.Message}
}

// NewInvalidRequestError creates an APIError for a malformed request body.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewUnconfiguredError creates the APIError returned when the provider
// credential is missing.
func NewUnconfiguredError() *APIError {
	return &APIError{
		Type:    ErrorTypeUnconfigured,
		Message: UnconfiguredMessage,
	}
}

// NewUpstreamError creates an APIError for a failed model call. The
// details are appended to UpstreamErrorPrefix.
func NewUpstreamError(details string) *APIError {
	return &APIError{
		Type:    ErrorTypeUpstream,
		Message: UpstreamErrorPrefix + details,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}
