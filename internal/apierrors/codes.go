// Package apierrors provides structured API error codes and responses.
// All codes are namespaced (e.g., "core:unauthorized", "chat:session_closed").
package apierrors

import "net/http"

// Core error codes - registered automatically at init
const (
	// Authentication & Authorization
	CodeUnauthorized       = "core:unauthorized"
	CodeForbidden          = "core:forbidden"
	CodeInvalidToken       = "core:invalid_token"
	CodeTokenExpired       = "core:token_expired"
	CodeInvalidCredentials = "core:invalid_credentials"

	// Request errors
	CodeInvalidRequest   = "core:invalid_request"
	CodeValidationFailed = "core:validation_failed"

	// Resource errors
	CodeNotFound = "core:not_found"
	CodeConflict = "core:conflict"

	// Rate limiting
	CodeRateLimited = "core:rate_limited"

	// Server errors
	CodeInternalError = "core:internal_error"
)

// Chat subsystem error codes
const (
	CodeNoAgentAvailable = "chat:no_agent_available"
	CodeSessionNotFound  = "chat:session_not_found"
	CodeSessionClosed    = "chat:session_closed"
	CodeEmptyMessage     = "chat:empty_message"
	CodeInvalidSender    = "chat:invalid_sender"
)

// Agent subsystem error codes
const (
	CodeAgentNotFound = "agent:not_found"
	CodeAgentExists   = "agent:already_exists"
	CodeInvalidStatus = "agent:invalid_status"
)

var registeredErrors = []ErrorCode{
	// Authentication & Authorization
	{Code: CodeUnauthorized, Message: "Authentication required", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeForbidden, Message: "Permission denied", HTTPStatus: http.StatusForbidden},
	{Code: CodeInvalidToken, Message: "Invalid or malformed token", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeTokenExpired, Message: "Token has expired", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeInvalidCredentials, Message: "Invalid credentials", HTTPStatus: http.StatusBadRequest},

	// Request errors
	{Code: CodeInvalidRequest, Message: "Invalid request body", HTTPStatus: http.StatusBadRequest},
	{Code: CodeValidationFailed, Message: "Request validation failed", HTTPStatus: http.StatusBadRequest},

	// Resource errors
	{Code: CodeNotFound, Message: "Resource not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeConflict, Message: "Resource conflict", HTTPStatus: http.StatusConflict},

	// Rate limiting
	{Code: CodeRateLimited, Message: "Too many requests", HTTPStatus: http.StatusTooManyRequests},

	// Server errors
	{Code: CodeInternalError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},

	// Chat
	{Code: CodeNoAgentAvailable, Message: "No agents available at the moment", HTTPStatus: http.StatusNotFound},
	{Code: CodeSessionNotFound, Message: "Chat session not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeSessionClosed, Message: "Chat session is closed", HTTPStatus: http.StatusConflict},
	{Code: CodeEmptyMessage, Message: "Message content is required", HTTPStatus: http.StatusBadRequest},
	{Code: CodeInvalidSender, Message: "Sender must be 'user' or 'agent'", HTTPStatus: http.StatusBadRequest},

	// Agent
	{Code: CodeAgentNotFound, Message: "Agent not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeAgentExists, Message: "Agent with this email already exists", HTTPStatus: http.StatusBadRequest},
	{Code: CodeInvalidStatus, Message: "Unknown agent status", HTTPStatus: http.StatusBadRequest},
}

func init() {
	for _, e := range registeredErrors {
		Registry.Register(e)
	}
}
