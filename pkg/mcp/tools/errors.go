package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Returning it as a tool result keeps the error visible to the calling
// model instead of being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can fix (bad SQL, unknown database).
// System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// IsUserError reports whether err came from the caller's input: SQL that
// does not parse, resolve or canonicalize, or a database id with no schema.
func IsUserError(err error) bool {
	switch apperrors.Kind(err) {
	case "malformed_query", "schema_resolution", "unsupported_construct", "unknown_database":
		return true
	}
	return false
}

// NewErrorResultFromErr wraps a user error as a structured tool result, coded
// by its error kind.
func NewErrorResultFromErr(err error, details any) *mcp.CallToolResult {
	return NewErrorResultWithDetails(apperrors.Kind(err), err.Error(), details)
}
