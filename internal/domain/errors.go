package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLayoutLine matches any *MalformedLayoutLineError via errors.Is.
	ErrMalformedLayoutLine = errors.New("malformed layout line")
	// ErrNoYearToken is returned when a file name does not carry exactly one year code.
	ErrNoYearToken = errors.New("no year token in file name")
	// ErrNotFound is returned by the catalog for unknown years.
	ErrNotFound = errors.New("not found")
)

// MalformedLayoutLineError is raised for an accepted candidate line whose
// numeric tokens cannot supply a length and a start/end pair.
type MalformedLayoutLineError struct {
	Year   string
	Field  string
	Line   string
	Reason string
}

func (e *MalformedLayoutLineError) Error() string {
	return fmt.Sprintf("year %s: field %s: %s: %q", e.Year, e.Field, e.Reason, e.Line)
}

func (e *MalformedLayoutLineError) Is(target error) bool {
	return target == ErrMalformedLayoutLine
}

// DuplicateFieldDefinition records a field defined twice in one document with
// different values. The later definition wins.
type DuplicateFieldDefinition struct {
	Year     string
	Field    string
	Previous FieldSpec
	Current  FieldSpec
}

func (d DuplicateFieldDefinition) String() string {
	return fmt.Sprintf("%s redefined: %d-%d (len %d) -> %d-%d (len %d)",
		d.Field,
		d.Previous.Start, d.Previous.End, d.Previous.DeclaredLength,
		d.Current.Start, d.Current.End, d.Current.DeclaredLength)
}
