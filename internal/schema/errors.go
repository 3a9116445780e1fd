package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a single rule violation in a gene cell.
type ValidationError struct {
	Row     int    // 1-based content row; 0 for column-level problems
	Field   string // Gene column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Error is returned by GeneSchema.Validate when any cell breaks the schema.
type Error struct {
	Violations []ValidationError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for i, v := range e.Violations {
		if i == 3 {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(e.Violations)-i))
			break
		}
		msgs = append(msgs, v.Error())
	}
	return "gene schema violation: " + strings.Join(msgs, "; ")
}
