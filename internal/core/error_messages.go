package core

// error_messages.go maps technical errors to messages an end user can act on.
//
// Each message carries a code that can be quoted to support staff:
//
// # Recovery Errors (REC001-REC099)
//
//	REC001 - The model output did not contain a table
//	         Patterns: "no tabular content found"
//	REC002 - Rows disagree with the header on column count
//	         Patterns: "inconsistent column count"
//	REC003 - The CSV parser rejected the output
//	         Patterns: "underlying parse failure"
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - A table has no columns
//	         Patterns: "table has no columns", "no tables given"
//	CFG002 - Two inputs share a name
//	         Patterns: "duplicate table name", "duplicate column name"
//	CFG003 - Invalid request options
//	         Patterns: "configuration error"
//
// # Engine Errors (GEN001-GEN099, SYN001-SYN099)
//
//	GEN001 - Prompt is required
//	         Patterns: "prompt is required"
//	GEN002 - Text generator failed
//	         Patterns: "completer complete failed"
//	SYN001 - Model training failed
//	         Patterns: "synthesizer train failed"
//	SYN002 - Sampling failed
//	         Patterns: "synthesizer sample failed"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV             Patterns: "invalid csv"
//	FILE003 - Encoding error          Patterns: "encoding error"
//	FILE004 - No file                 Patterns: "no file provided"
//	FILE005 - Empty file              Patterns: "empty file"
//	FILE006 - Artifact not found      Patterns: "artifact not found"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy              Patterns: "too many runs"
//	RUN002 - Request cancelled        Patterns: "context canceled"
//	RUN003 - Request timeout          Patterns: "context deadline exceeded"
//
// # Access (RATE001, AUTH001)
//
//	RATE001 - Too many requests       Patterns: "rate limit"
//	AUTH001 - Missing or invalid key  Patterns: "api key"
//
// Unmatched errors map to ERR000.

import (
	"fmt"
	"strings"
)

// UserMessage is a user-facing description of an error.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is matched in order; the first hit wins. Recovery patterns
// come first because their details may quote arbitrary model output.
var errorPatterns = []errorPattern{
	// Recovery
	{
		pattern: "no tabular content found",
		msg: UserMessage{
			Message: "The model output did not contain a table",
			Action:  "Ask for comma-separated rows with a header and try again",
			Code:    "REC001",
		},
	},
	{
		pattern: "inconsistent column count",
		msg: UserMessage{
			Message: "Some rows have a different number of columns than the header",
			Action:  "Try again; the output may have been cut off or merged",
			Code:    "REC002",
		},
	},
	{
		pattern: "underlying parse failure",
		msg: UserMessage{
			Message: "The model output could not be parsed as CSV",
			Action:  "Try again or ask for values without embedded quotes",
			Code:    "REC003",
		},
	},

	// Configuration
	{
		pattern: "table has no columns",
		msg: UserMessage{
			Message: "A table has no columns",
			Action:  "Upload CSV files that start with a header row",
			Code:    "CFG001",
		},
	},
	{
		pattern: "no tables given",
		msg: UserMessage{
			Message: "No tables were provided",
			Action:  "Upload at least one CSV file",
			Code:    "CFG001",
		},
	},
	{
		pattern: "duplicate table name",
		msg: UserMessage{
			Message: "Two files map to the same table name",
			Action:  "Rename one of the files",
			Code:    "CFG002",
		},
	},
	{
		pattern: "duplicate column name",
		msg: UserMessage{
			Message: "A table repeats a column name",
			Action:  "Give every column a distinct header",
			Code:    "CFG002",
		},
	},
	{
		pattern: "configuration error",
		msg: UserMessage{
			Message: "The request options are invalid",
			Action:  "Check the mode, row count, text length and format",
			Code:    "CFG003",
		},
	},

	// Engines
	{
		pattern: "prompt is required",
		msg: UserMessage{
			Message: "Prompt is required",
			Action:  "Describe the dataset you want to generate",
			Code:    "GEN001",
		},
	},
	{
		pattern: "completer complete failed",
		msg: UserMessage{
			Message: "The text generator failed",
			Action:  "Check that the model is installed and running, then try again",
			Code:    "GEN002",
		},
	},
	{
		pattern: "synthesizer train failed",
		msg: UserMessage{
			Message: "Model training failed",
			Action:  "Check the uploaded tables and the synthesizer logs",
			Code:    "SYN001",
		},
	},
	{
		pattern: "synthesizer sample failed",
		msg: UserMessage{
			Message: "Sampling synthetic rows failed",
			Action:  "Try a smaller row count or retrain",
			Code:    "SYN002",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "artifact not found",
		msg: UserMessage{
			Message: "The requested download does not exist",
			Action:  "Run the pipeline again to produce a new artifact",
			Code:    "FILE006",
		},
	},

	// Runs
	{
		pattern: "too many runs",
		msg: UserMessage{
			Message: "System busy",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try fewer rows or a shorter prompt",
			Code:    "RUN003",
		},
	},

	// Access
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "api key",
		msg: UserMessage{
			Message: "Missing or invalid API key",
			Action:  "Send a valid key in the X-API-Key header",
			Code:    "AUTH001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Matching is case-insensitive; the first pattern found wins.
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

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
