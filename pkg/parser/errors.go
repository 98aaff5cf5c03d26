package parser

import "fmt"

// DuplicateParserError is returned by Register when a kind is already taken.
type DuplicateParserError struct {
	Kind string
}

// Error implements the error interface.
func (e *DuplicateParserError) Error() string {
	return fmt.Sprintf("parser already registered for kind %q", e.Kind)
}

// UnknownParserKindError is returned by Create when no parser is registered
// for a kind.
type UnknownParserKindError struct {
	Kind string
}

// Error implements the error interface.
func (e *UnknownParserKindError) Error() string {
	return fmt.Sprintf("no parser registered for kind %q", e.Kind)
}

// MalformedRecordError is returned by a parser when a required field of a
// hit is absent or cannot be parsed.
type MalformedRecordError struct {
	Kind  string
	Field string
	Err   error
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s record: field %q: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed %s record: field %q", e.Kind, e.Field)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
