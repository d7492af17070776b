package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that have no answer.
var ErrNotFound = errors.New("not found")

// ParseError reports a malformed input file.
type ParseError struct {
	Path   string
	Line   int // 0 when the error is not tied to a row
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse " + e.Path
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnrecognizedTradeTypeError is raised when a row is neither a buy nor a sell.
type UnrecognizedTradeTypeError struct {
	ISIN string
	Type string
}

func (e *UnrecognizedTradeTypeError) Error() string {
	return fmt.Sprintf("unrecognized trade type %q for %s", e.Type, e.ISIN)
}

// NoBuySharesError is raised when a security has no bought shares, which
// leaves the average buy price undefined.
type NoBuySharesError struct {
	ISIN string
}

func (e *NoBuySharesError) Error() string {
	return fmt.Sprintf("security %s has no bought shares, average buy price is undefined", e.ISIN)
}

// MissingDateColumnError is raised when an existing price cache has no
// usable Date column.
type MissingDateColumnError struct {
	Path string
}

func (e *MissingDateColumnError) Error() string {
	return fmt.Sprintf("price cache %s has no Date column", e.Path)
}
