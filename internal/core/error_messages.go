package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference. Users quote the code; support staff look it up
// here.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Malformed batch: no header or no data rows
//	         Patterns: "malformed input"
//	VAL002 - Missing column: a required column is absent from the header
//	         Patterns: "missing required column"
//	VAL003 - Invalid rows: one or more rows failed validation
//	         Patterns: "validation failed"
//	VAL004 - Unreadable request body (publish, GPA)
//	         Patterns: "invalid request body"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	          Patterns: "file too large"
//	FILE002 - No file selected
//	          Patterns: "no file provided"
//	FILE003 - Empty file
//	          Patterns: "empty file"
//
// # Store Errors (DB001-DB099)
//
//	DB001 - Duplicate result key
//	        Patterns: "duplicate key", "unique constraint"
//	DB002 - Connection refused
//	        Patterns: "connection refused"
//	DB003 - Connection reset
//	        Patterns: "connection reset"
//	DB004 - Timeout
//	        Patterns: "deadline exceeded", "timeout"
//	DB005 - Record not found
//	        Patterns: "record not found"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy
//	         Patterns: "too many concurrent uploads"
//	UPL002 - Request cancelled
//	         Patterns: "context canceled"
//
// # Publish Errors (PUB001-PUB099)
//
//	PUB001 - No roll numbers supplied
//	         Patterns: "no roll numbers"
//	PUB002 - No published results for a student
//	         Patterns: "no results found"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

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

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Validation
	{
		pattern: "malformed input",
		msg: UserMessage{
			Message: "The file needs a header line and at least one data row",
			Action:  "Download the template and keep its first line as the header",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Include rollNumber, courseCode, marks and studentName in the header",
			Code:    "VAL002",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some rows failed validation",
			Action:  "Fix the listed rows and upload the file again",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body could not be read",
			Action:  "Send a JSON object with the documented fields",
			Code:    "VAL004",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with data rows",
			Code:    "FILE003",
		},
	},

	// Store
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A result for this student and course already exists",
			Action:  "Upload again; existing results are updated in place",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A result for this student and course already exists",
			Action:  "Upload again; existing results are updated in place",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Failed records can be retried by uploading the file again",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Failed records can be retried by uploading the file again",
			Code:    "DB004",
		},
	},
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "The result no longer exists",
			Action:  "Refresh and try again",
			Code:    "DB005",
		},
	},

	// Upload
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "Too many uploads in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},

	// Publish
	{
		pattern: "no roll numbers",
		msg: UserMessage{
			Message: "No roll numbers were supplied",
			Action:  "Select at least one student to publish",
			Code:    "PUB001",
		},
	},
	{
		pattern: "no results found",
		msg: UserMessage{
			Message: "No published results found",
			Action:  "Check the roll number or wait for results to be published",
			Code:    "PUB002",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
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

// FormatUserError formats an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
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

// NewUserError maps err to a UserError. Returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
