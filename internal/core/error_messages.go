package core

// error_messages.go maps technical errors to user-facing status messages.
//
// # Error Codes Reference
//
// Codes are grouped by category so users can quote them to support staff.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Split the file into smaller chunks
//	FILE002 - Invalid CSV: The file could not be parsed as CSV
//	          Action: Check quoting and make sure every row uses the same delimiter
//	FILE003 - Encoding error: File contains invalid characters
//	          Action: Save file as UTF-8 encoding
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to upload
//	FILE005 - Empty file: The file has a header but no data rows
//	          Action: Add at least one data row below the header
//	FILE006 - Not CSV: Only .csv files can be converted
//	          Action: Choose a file with a .csv extension
//
// # Conversion Errors (CONV001-CONV099)
//
//	CONV001 - Invalid element name: A column name cannot be used as an XML element
//	          Action: Rename the column or enable name sanitizing
//	CONV002 - Unknown format: The requested export format does not exist
//	          Action: Choose JSON, Excel, XML or Parquet
//	CONV003 - Cell too long: A value exceeds the Excel cell limit
//	          Action: Shorten the value or download another format
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: The conversion session no longer exists
//	         Action: Reload the page and upload the file again
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid query: A page or size parameter is not valid
//	         Action: Use whole numbers within the allowed range
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Sentinel errors are matched first with errors.Is; anything else falls
// through to case-insensitive substring patterns. First match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "The file could not be parsed as CSV",
		Action:  "Check quoting and make sure every row uses the same delimiter",
		Code:    "FILE002",
	}
	msgEmptyFile = UserMessage{
		Message: "The file has a header but no data rows",
		Action:  "Add at least one data row below the header",
		Code:    "FILE005",
	}
	msgNotCSV = UserMessage{
		Message: "Only .csv files can be converted",
		Action:  "Choose a file with a .csv extension",
		Code:    "FILE006",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgSessionExpired = UserMessage{
		Message: "The conversion session no longer exists",
		Action:  "Reload the page and upload the file again",
		Code:    "SES001",
	}
)

// errorKinds is checked before the substring patterns.
// ErrFileTooLarge must precede ErrParseFailure since both wrap the same error.
var errorKinds = []struct {
	target error
	msg    UserMessage
}{
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrInvalidFormat, msgNotCSV},
	{ErrEmptyResult, msgEmptyFile},
	{ErrTooManyParses, msgBusy},
	{ErrSessionNotFound, msgSessionExpired},
	{ErrParseFailure, msgInvalidCSV},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{pattern: "invalid element name", msg: UserMessage{
		Message: "A column name cannot be used as an XML element",
		Action:  "Rename the column or enable name sanitizing",
		Code:    "CONV001",
	}},
	{pattern: "unknown format", msg: UserMessage{
		Message: "The requested export format does not exist",
		Action:  "Choose JSON, Excel, XML or Parquet",
		Code:    "CONV002",
	}},
	{pattern: "cell too long", msg: UserMessage{
		Message: "A cell is longer than Excel allows (32767 characters)",
		Action:  "Shorten the value or download another format",
		Code:    "CONV003",
	}},
	{pattern: "encoding error", msg: UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save file as UTF-8 encoding",
		Code:    "FILE003",
	}},
	{pattern: "no file provided", msg: UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "context canceled", msg: UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{pattern: "context deadline exceeded", msg: UserMessage{
		Message: "Request timed out",
		Action:  "Try uploading a smaller file or check your connection",
		Code:    "UPL005",
	}},
	{pattern: "invalid query", msg: UserMessage{
		Message: "A page or size parameter is not valid",
		Action:  "Use whole numbers within the allowed range",
		Code:    "REQ001",
	}},
	{pattern: "rate limit", msg: UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
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
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
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

// NewUserError wraps err with its mapped message. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
