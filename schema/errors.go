package schema

import (
	"fmt"
	"strings"
)

// ShapeMismatchError reports a CSV row whose cell count differs from the
// number of fields in the record schema. No field is parsed in that case.
type ShapeMismatchError struct {
	Row    []string
	Fields []string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("invalid CSV format: line %q doesn't match the expected field order %q (expected %d fields, got %d)",
		e.Row, e.Fields, len(e.Fields), len(e.Row))
}

// FieldError reports a cell that could not be parsed as its field's type.
// Any FieldError aborts decoding of the whole row.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("error parsing value %q for field %q: %v", e.Value, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// LiteralError reports a value outside a Literal's allowed set.
type LiteralError struct {
	Value   string
	Allowed []string
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("invalid value %q, expected one of: %q", e.Value, e.Allowed)
}

// CSVSyntaxError reports a body that cannot be read as CSV at all.
type CSVSyntaxError struct {
	Line int
	Msg  string
}

func (e *CSVSyntaxError) Error() string {
	return fmt.Sprintf("invalid CSV input: line %d: %s", e.Line, e.Msg)
}

// Problem is one JSON Schema violation.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports JSON that does not match a record schema.
type ValidationError struct {
	Schema   string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Field + ": " + p.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Schema, strings.Join(msgs, "; "))
}
