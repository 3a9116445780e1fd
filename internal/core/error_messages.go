package core

// error_messages.go maps technical errors to coded user messages.
//
// Codes are quoted by users when reporting a problem, so each one is stable:
//
//	GENE001  invalid gene name            a gene column is not LOC-NAME
//	GENE002  invalid gene marker name     location or name part is malformed
//	GENE003  duplicate accessions         intra- or inter-genic duplicates
//	GENE004  gene column missing          definition names a column the content lacks
//	SCH001   schema violation             an accession failed the gene schema
//	SRC001   empty file                   no rows at all
//	SRC002   missing definition row       header present, marker row absent
//	SRC003   invalid csv                  unparseable or duplicate headers
//	SRC004   file too large               exceeds VALIDATE_MAX_FILE_SIZE
//	VAL001   too many validations         limiter saturated
//	RUN001   run not found                unknown run id
//	RUN002   history disabled             no database configured
//	RATE001  rate limited                 per-IP token bucket empty
//	REQ001   invalid request              malformed query parameter or run id
//	ERR000   unexpected error             check the logs
//
// Typed errors are matched with errors.Is/As first. Anything else falls
// back to case-insensitive substring matching, first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/genecheck/internal/schema"
	"github.com/JonMunkholm/genecheck/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	msgInvalidGeneName = UserMessage{
		Message: "A gene column name is not in LOC-NAME form",
		Action:  "Rename gene columns to a three letter location, a dash, and an alphanumeric name (e.g. ABC-1)",
		Code:    "GENE001",
	}
	msgInvalidGeneMarkerName = UserMessage{
		Message: "A gene column name has an invalid location or name part",
		Action:  "Use exactly three letters for the location and only letters or digits for the name",
		Code:    "GENE002",
	}
	msgDuplicateAccessions = UserMessage{
		Message: "Duplicate accessions were found",
		Action:  "Review the duplicate report; if the duplication is intentional, re-run with --skip-duplicates",
		Code:    "GENE003",
	}
	msgMissingColumn = UserMessage{
		Message: "A gene column is missing from the content rows",
		Action:  "Check that every marked column is present in the header",
		Code:    "GENE004",
	}
	msgSchemaViolation = UserMessage{
		Message: "An accession does not match the gene schema",
		Action:  "Remove whitespace from accession values",
		Code:    "SCH001",
	}
	msgEmptyFile = UserMessage{
		Message: "The file is empty",
		Action:  "Upload a file with a header row, a definition row, and content rows",
		Code:    "SRC001",
	}
	msgMissingDefinition = UserMessage{
		Message: "The definition row is missing",
		Action:  "Add a second row marking gene columns",
		Code:    "SRC002",
	}
	msgInvalidCSV = UserMessage{
		Message: "The file is not valid delimited text",
		Action:  "Ensure column headers are unique and the delimiter is consistent",
		Code:    "SRC003",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "SRC004",
	}
	msgTooManyValidations = UserMessage{
		Message: "System is busy processing other validations",
		Action:  "Please wait a moment and try again",
		Code:    "VAL001",
	}
	msgRunNotFound = UserMessage{
		Message: "Validation run not found",
		Action:  "Check the run ID",
		Code:    "RUN001",
	}
	msgHistoryDisabled = UserMessage{
		Message: "Run history is not enabled",
		Action:  "Set DATABASE_URL to record validation runs",
		Code:    "RUN002",
	}
	msgInvalidRequest = UserMessage{
		Message: "The request is invalid",
		Action:  "Check the query parameters and run ID",
		Code:    "REQ001",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is consulted when no typed match applies.
var errorPatterns = []errorPattern{
	{pattern: "invalid gene marker name", msg: msgInvalidGeneMarkerName},
	{pattern: "invalid gene name", msg: msgInvalidGeneName},
	{pattern: "duplicate accessions", msg: msgDuplicateAccessions},
	{pattern: "column not found", msg: msgMissingColumn},
	{pattern: "gene schema violation", msg: msgSchemaViolation},
	{pattern: "empty file", msg: msgEmptyFile},
	{pattern: "missing definition row", msg: msgMissingDefinition},
	{pattern: "invalid csv", msg: msgInvalidCSV},
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "too many validations", msg: msgTooManyValidations},
	{pattern: "run not found", msg: msgRunNotFound},
	{pattern: "rate limit", msg: msgRateLimited},
}

// defaultMessage is returned when nothing matches. Support staff should
// check application logs for the original error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var schemaErr *schema.Error
	var missingErr *MissingColumnError
	switch {
	case errors.Is(err, ErrInvalidGeneMarkerName):
		return msgInvalidGeneMarkerName
	case errors.Is(err, ErrInvalidGeneName):
		return msgInvalidGeneName
	case errors.Is(err, ErrDuplicateAccessions):
		return msgDuplicateAccessions
	case errors.As(err, &missingErr):
		return msgMissingColumn
	case errors.As(err, &schemaErr):
		return msgSchemaViolation
	case errors.Is(err, table.ErrEmptySource):
		return msgEmptyFile
	case errors.Is(err, table.ErrMissingDefinition):
		return msgMissingDefinition
	case errors.Is(err, table.ErrFileTooLarge):
		return msgFileTooLarge
	case errors.Is(err, table.ErrInvalidCSV):
		return msgInvalidCSV
	case errors.Is(err, ErrTooManyValidations):
		return msgTooManyValidations
	case errors.Is(err, ErrRunNotFound):
		return msgRunNotFound
	case errors.Is(err, ErrHistoryDisabled):
		return msgHistoryDisabled
	case errors.Is(err, ErrInvalidRequest):
		return msgInvalidRequest
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

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
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
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
