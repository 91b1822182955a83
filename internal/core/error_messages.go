package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Users quote the code; support staff look it up here.
//
// # Database (DB001-DB099)
//
//	DB001 - Duplicate record            "duplicate"
//	DB002 - Unique constraint           "unique constraint", "violates unique"
//	DB003 - Record not found            "record not found"
//	DB004 - Connection refused          "connection refused"
//	DB005 - Connection reset            "connection reset"
//	DB006 - Timeout                     "timeout"
//	DB007 - Deadlock                    "deadlock"
//	DB008 - Database busy (sqlite)      "database is locked"
//
// # Validation (VAL001-VAL099)
//
//	VAL003 - Required field             "required field"
//	VAL006 - Invalid enum               "value must be one of"
//	VAL007 - Length out of range        "must be at least", "must be at most"
//	VAL008 - Not a scalar               "must be a single value"
//	VAL009 - Not an object              "must be a json object"
//	VAL010 - Invalid record id          "invalid id"
//
// # File (FILE001-FILE099)
//
//	FILE001 - File too large            "file too large"
//	FILE002 - Invalid CSV               "invalid csv"
//	FILE003 - Invalid JSON              "invalid json"
//	FILE004 - JSON not an array         "must contain an array"
//	FILE005 - Empty file                "empty file"
//	FILE006 - Missing header            "missing csv header"
//	FILE007 - Unsupported format        "unsupported format"
//	FILE008 - Trailing data             "unexpected data after"
//
// # Import (IMP001-IMP099)
//
//	IMP001 - Import cancelled           "import cancelled"
//	IMP002 - System busy                "too many concurrent imports"
//	IMP003 - Request cancelled          "context canceled"
//	IMP004 - Request timeout            "context deadline exceeded"
//
// # Rate limiting
//
//	RATE001 - Rate limited              "rate limit"
//
// ERR000 is the fallback when nothing matches; check the server log for the
// original error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns precede general ones.

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
	// Import lifecycle first: these wrap storage errors that would otherwise match below.
	{"import cancelled", UserMessage{"Import was cancelled before every record was processed", "Re-run the import; records already stored will be reported as duplicates", "IMP001"}},
	{"too many concurrent imports", UserMessage{"Too many imports in progress", "Please wait a moment and try again", "IMP002"}},

	// Database
	{"duplicate", UserMessage{"A record with this client reference already exists", "Remove or rename the duplicate entries and import again", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check for duplicate entries in your file", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Review your data for duplicate key values", "DB002"}},
	{"record not found", UserMessage{"The support log entry does not exist", "Refresh the list; it may have been deleted", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"database is locked", UserMessage{"Database is busy", "Please try again", "DB008"}},

	// Validation
	{"required field", UserMessage{"Required field is empty", "Fill in every required field", "VAL003"}},
	{"value must be one of", UserMessage{"Value is not in the allowed list", "Check the allowed values for this field", "VAL006"}},
	{"must be at least", UserMessage{"Value is too short", "Provide a longer value", "VAL007"}},
	{"must be at most", UserMessage{"Value is too long", "Shorten the value", "VAL007"}},
	{"must be a single value", UserMessage{"A field holds a list or object", "Use plain text, numbers or booleans for field values", "VAL008"}},
	{"must be a json object", UserMessage{"Request body is not a JSON object", "Send the record as a JSON object", "VAL009"}},
	{"invalid id", UserMessage{"Invalid record ID", "Use the numeric ID shown in the listing", "VAL010"}},
	{"invalid query parameter", UserMessage{"A filter value is not valid", "Use true/false or Yes/No for flag filters", "VAL011"}},

	// File
	{"file too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure file is comma-separated with a header row", "FILE002"}},
	{"invalid json", UserMessage{"File is not valid JSON", "Check the file with a JSON validator", "FILE003"}},
	{"must contain an array", UserMessage{"JSON must contain an array of log entries", "Wrap the entries in [ ... ]", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload a file with at least one entry", "FILE005"}},
	{"missing csv header", UserMessage{"CSV header row not recognized", "Use the column names from an export as the first row", "FILE006"}},
	{"unsupported format", UserMessage{"Unsupported file format", "Only CSV and JSON files are allowed", "FILE007"}},
	{"unexpected data after", UserMessage{"File has content after the JSON array", "Remove everything after the closing ]", "FILE008"}},

	// Request lifecycle
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP003"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try importing a smaller file or check your connection", "IMP004"}},
	{"timeout", UserMessage{"Operation timed out", "Try again later", "DB006"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unmatched
// errors map to ERR000; nil maps to the zero UserMessage.
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

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a known pattern.
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

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
