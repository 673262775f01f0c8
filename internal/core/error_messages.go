package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the error code reference in doc.go
var errorPatterns = []errorPattern{
	// =========================================================================
	// Address and Schema Errors (ADDR001, TBL001-TBL002)
	// These errors occur when a request names something that does not exist.
	// =========================================================================
	{
		pattern: "unknown uri",
		msg: UserMessage{
			Message: "The address does not match any resource",
			Action:  "Use a table name, optionally followed by a numeric row id",
			Code:    "ADDR001",
		},
	},
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Verify the table name is correct",
			Code:    "TBL001",
		},
	},
	{
		pattern: "unknown table",
		msg: UserMessage{
			Message: "Unknown table",
			Action:  "This table is not part of the schema",
			Code:    "TBL002",
		},
	},

	// =========================================================================
	// Request Errors (PROJ001, SCOPE001, FLT001, CSV001, ROW001)
	// These errors occur when a request is well addressed but malformed.
	// =========================================================================
	{
		pattern: "invalid projection",
		msg: UserMessage{
			Message: "One or more requested columns do not exist",
			Action:  "Check the column names against the table schema",
			Code:    "PROJ001",
		},
	},
	{
		pattern: "unsupported scope",
		msg: UserMessage{
			Message: "This operation is not available at this address",
			Action:  "Create rows at the table address, not at a row address",
			Code:    "SCOPE001",
		},
	},
	{
		pattern: "invalid filter",
		msg: UserMessage{
			Message: "The filter could not be applied",
			Action:  "Use filter[column]=op:value with a known column and operator",
			Code:    "FLT001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The CSV file could not be imported",
			Action:  "The first row must name table columns, each at most once",
			Code:    "CSV001",
		},
	},
	{
		pattern: "empty values",
		msg: UserMessage{
			Message: "No values were provided",
			Action:  "Include at least one column to change",
			Code:    "ROW001",
		},
	},

	// =========================================================================
	// Storage Availability (STORE001-STORE002)
	// These errors occur when storage could not be prepared.
	// =========================================================================
	{
		pattern: "provider not open",
		msg: UserMessage{
			Message: "Storage is not ready",
			Action:  "Please try again in a few moments",
			Code:    "STORE001",
		},
	},
	{
		pattern: "create table",
		msg: UserMessage{
			Message: "Storage could not be initialized",
			Action:  "Check the store configuration and server logs",
			Code:    "STORE002",
		},
	},

	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// These errors occur when data violates database constraints.
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Use a different value for the unique column",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate values",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "duplicate entry",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "not null constraint",
		msg: UserMessage{
			Message: "A required column is missing",
			Action:  "Provide a value for every required column",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates not-null",
		msg: UserMessage{
			Message: "A required column is missing",
			Action:  "Provide a value for every required column",
			Code:    "DB003",
		},
	},
	{
		pattern: "cannot be null",
		msg: UserMessage{
			Message: "A required column is missing",
			Action:  "Provide a value for every required column",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// These errors occur when database connectivity is disrupted.
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Narrow the request with a filter or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Request Lifecycle (REQ001-REQ003)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Narrow the request with a filter or try again later",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body could not be read",
			Action:  "Send a JSON object of column values, or an array of them",
			Code:    "REQ003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New("duplicate key violation")
//	msg := MapError(err)
//	// msg.Code == "DB001"
//	// msg.Message == "A record with this key already exists"
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "Unknown table (Code: TBL002). This table is not part of the schema"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// WrapWithUserMessage wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(dbErr)
//	log.Error(ue.Technical)          // Log original error
//	fmt.Println(ue.Error())           // Show "A record with this key already exists"
//	fmt.Println(ue.User.Code)         // Show "DB001"
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
