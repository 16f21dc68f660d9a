package treeio

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat  = errors.New("invalid format")
	ErrDuplicateTaxon = errors.New("duplicate taxon")
	ErrUnknownTaxon   = errors.New("unknown taxon")
	ErrUnreconciled   = errors.New("branch lengths are not known")
)

// FormatError reports malformed input together with where it was found. Line
// is 1 based; Offset is the byte offset within that line.
type FormatError struct {
	Line   int
	Offset int
	Msg    string
	Err    error // underlying cause, may be nil
}

func (e *FormatError) Error() string {
	s := fmt.Sprintf("%s, line %d offset %d: %s", ErrInvalidFormat, e.Line, e.Offset, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidFormat}
	}
	return []error{ErrInvalidFormat, e.Err}
}
