package core

// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes for
// support reference. Dashboard editors and the sync operator can quote the
// code when something goes wrong.
//
// # Auth Errors (AUTH001)
//
//	AUTH001 - Unauthorized: Missing or invalid bearer token
//	          Action: Send "Authorization: Bearer <API_KEY>"
//	          Patterns: "unauthorized"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Not a list: Ingest payload must be a JSON array
//	VAL002 - Not an object: Every ingested item must be a JSON object
//	VAL003 - Missing field: Patch body has no usable "field"
//	VAL004 - Not editable: Field is outside the editable allow-list
//	VAL005 - Reserved field: The identifier field cannot be patched
//	VAL006 - Duplicate identifier: Two ingested rows share an identifier
//
// # Row Errors (ROW001)
//
//	ROW001 - Row not found: Identifier matched no row, exact or suffix-stripped
//	         Action: Use one of the identifiers listed by /releases/ids
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid JSON body
//	REQ002 - Request body too large
//	REQ003 - Request cancelled ("context canceled")
//	REQ004 - Request timeout ("context deadline exceeded")
//	REQ005 - Invalid limit query parameter
//
// # Upstream Errors (UPS001)
//
//	UPS001 - Upstream failure: every attempt against the ticketing system failed
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	RATE002 - Too many concurrent ingests
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed first.

import (
	"fmt"
	"strings"
)

// UserMessage is the client-facing rendition of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Upstream failures embed response bodies, so they are matched first.
	{
		pattern: "upstream",
		msg: UserMessage{
			Message: "Ticketing system request failed",
			Action:  "Check the Jira credentials and query window",
			Code:    "UPS001",
		},
	},

	// =========================================================================
	// Auth
	// =========================================================================
	{
		pattern: "unauthorized",
		msg: UserMessage{
			Message: "Unauthorized",
			Action:  "Send the shared secret as a bearer token",
			Code:    "AUTH001",
		},
	},

	// =========================================================================
	// Validation (VAL001-VAL006)
	// =========================================================================
	{
		pattern: "expected a list",
		msg: UserMessage{
			Message: "Expected a list of releases",
			Action:  "Post a JSON array of row objects",
			Code:    "VAL001",
		},
	},
	{
		pattern: "must be an object",
		msg: UserMessage{
			Message: "Each item must be an object",
			Action:  "Make sure every array element is a JSON object",
			Code:    "VAL002",
		},
	},
	{
		pattern: "missing 'field'",
		msg: UserMessage{
			Message: "Missing 'field'",
			Action:  `Send a body like {"field": "Status", "value": "Done"}`,
			Code:    "VAL003",
		},
	},
	{
		pattern: "not editable",
		msg: UserMessage{
			Message: "Field is not editable",
			Action:  "Only fields in the editable list can be changed",
			Code:    "VAL004",
		},
	},
	{
		pattern: "reserved field",
		msg: UserMessage{
			Message: "The identifier field cannot be changed",
			Action:  "Patch a data column instead of __id",
			Code:    "VAL005",
		},
	},
	{
		pattern: "duplicate identifier",
		msg: UserMessage{
			Message: "Two rows share the same identifier",
			Action:  "Run the sync job so identifiers are de-duplicated",
			Code:    "VAL006",
		},
	},

	// =========================================================================
	// Rows
	// =========================================================================
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "Row not found",
			Action:  "Use one of the identifiers listed by /releases/ids",
			Code:    "ROW001",
		},
	},

	// =========================================================================
	// Requests (REQ001-REQ004)
	// =========================================================================
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "Invalid JSON body",
			Action:  "Check the request body is well-formed JSON",
			Code:    "REQ001",
		},
	},
	{
		pattern: "invalid limit",
		msg: UserMessage{
			Message: "Invalid limit parameter",
			Action:  "Pass a positive integer as ?limit=",
			Code:    "REQ005",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Request body too large",
			Action:  "Send a smaller batch or raise API_MAX_BODY_SIZE",
			Code:    "REQ002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ004",
		},
	},

	// =========================================================================
	// Rate Limiting
	// =========================================================================
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "Another batch is being ingested",
			Action:  "Wait for the running sync to finish and retry",
			Code:    "RATE002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
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
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, the ERR000 fallback is returned.
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
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
