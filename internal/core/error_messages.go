package core

// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes for
// support reference. Users quote the code; support looks it up here.
//
// # Plan Errors (PLN001-PLN099)
//
//	PLN001 - Unknown plan: No plan is registered under this name
//	         Action: List plans with GET /api/plans and check the name
//	         Patterns: "unknown plan"
//
//	PLN002 - Invalid plan: The plan document could not be compiled
//	         Action: Fix the steps listed in the error and resubmit
//	         Patterns: "invalid plan"
//
//	PLN003 - Storage disabled: Saved plans need a database
//	         Action: Configure DATABASE_URL or load plans from PLANS_DIR
//	         Patterns: "plan store not configured"
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Column not found: A step referenced a column the table lacks
//	         Action: Check column names against the table header
//	         Patterns: "column not found"
//
//	MAP002 - Index out of range: A step used a position outside the table
//	         Action: Positions start at 0 and must be below the column count
//	         Patterns: "column index out of range"
//
//	MAP003 - Length mismatch: A column or the row count changed size
//	         Action: Review protect and combine steps
//	         Patterns: "length mismatch"
//
//	MAP004 - Ragged table: Rows have different numbers of cells
//	         Action: Every row must have one cell per column
//	         Patterns: "ragged row"
//
//	MAP005 - No alternatives: A first_of step listed no alternatives
//	         Action: Add at least one alternative
//	         Patterns: "no alternative mappings"
//
// # Document Errors (DOC001-DOC099)
//
//	DOC001 - Too large: The request body exceeds the size limit
//	         Action: Split the table into smaller batches
//	         Patterns: "document too large"
//
//	DOC002 - Malformed: The request body is not valid JSON
//	         Action: Send {"columns": [...], "rows": [[...]]}
//	         Patterns: "decode table", "decode request"
//
// # Apply Errors (APL001-APL099)
//
//	APL001 - System busy: Too many applies in progress
//	         Patterns: "too many concurrent applies"
//	APL002 - Table too large: Row or column limit exceeded
//	         Patterns: "table too large"
//	APL003 - Run not found: No run was recorded under this id
//	         Patterns: "run not found"
//	APL004 - Request cancelled
//	         Patterns: "context canceled"
//	APL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate: A plan with this name already exists
//	        Patterns: "duplicate key", "already registered"
//	DB002 - Connection refused
//	        Patterns: "connection refused"
//	DB003 - Timeout
//	        Patterns: "timeout"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Plans
	{"unknown plan", UserMessage{
		Message: "No plan is registered under this name",
		Action:  "List available plans and check the name",
		Code:    "PLN001",
	}},
	{"plan store not configured", UserMessage{
		Message: "Saved plans are not available on this server",
		Action:  "Configure a database or load plans from the plans directory",
		Code:    "PLN003",
	}},
	{"already registered", UserMessage{
		Message: "A plan with this name already exists",
		Action:  "Choose a different name or delete the existing plan",
		Code:    "DB001",
	}},
	{"invalid plan", UserMessage{
		Message: "The plan could not be compiled",
		Action:  "Fix the listed steps and submit the plan again",
		Code:    "PLN002",
	}},

	// Mapping
	{"column not found", UserMessage{
		Message: "A step referenced a column the table does not have",
		Action:  "Check the step's column names against the table header",
		Code:    "MAP001",
	}},
	{"column index out of range", UserMessage{
		Message: "A step used a column position outside the table",
		Action:  "Positions start at 0 and must be below the column count",
		Code:    "MAP002",
	}},
	{"length mismatch", UserMessage{
		Message: "A column does not match the table's row count",
		Action:  "Review combine and protect steps",
		Code:    "MAP003",
	}},
	{"ragged row", UserMessage{
		Message: "Rows have different numbers of cells",
		Action:  "Make every row have exactly one cell per column",
		Code:    "MAP004",
	}},
	{"no alternative mappings", UserMessage{
		Message: "A first_of step has no alternatives",
		Action:  "Add at least one alternative",
		Code:    "MAP005",
	}},

	// Documents
	{"document too large", UserMessage{
		Message: "Request body exceeds the size limit",
		Action:  "Split the table into smaller batches",
		Code:    "DOC001",
	}},
	{"decode table", UserMessage{
		Message: "Table is not valid JSON",
		Action:  `Send {"columns": [...], "rows": [[...]]}`,
		Code:    "DOC002",
	}},
	{"decode request", UserMessage{
		Message: "Request body is not valid JSON",
		Action:  "Check the request body format",
		Code:    "DOC002",
	}},

	// Apply
	{"too many concurrent applies", UserMessage{
		Message: "System is busy applying other plans",
		Action:  "Please wait a moment and try again",
		Code:    "APL001",
	}},
	{"table too large", UserMessage{
		Message: "Table exceeds the row or column limit",
		Action:  "Split the table into smaller batches",
		Code:    "APL002",
	}},
	{"run not found", UserMessage{
		Message: "No run was recorded under this id",
		Action:  "Check the run id returned by the apply request",
		Code:    "APL003",
	}},
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "APL004",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller table or try again later",
		Code:    "APL005",
	}},

	// Database
	{"duplicate key", UserMessage{
		Message: "A plan with this name already exists",
		Action:  "Choose a different name or delete the existing plan",
		Code:    "DB001",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again later",
		Code:    "DB003",
	}},

	// Rate limiting
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
// Unmatched errors should be logged and replaced with a generic message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
