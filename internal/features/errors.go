package features

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/series"
)

// ErrUnfilteredInput is returned when the input still has rows without an average
// rating or a production budget. Derive only accepts the filtered output of a join.
var ErrUnfilteredInput = errors.New("input has rows without rating or budget")

// ParseError reports a currency cell that is not a whole number once separators and
// currency symbols are removed.
type ParseError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s at row %d: %q: %v", e.Column, e.Row, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DomainError reports a vote count whose logarithm is undefined.
type DomainError struct {
	Row      int
	NumVotes float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("log of numvotes undefined at row %d: %v", e.Row, e.NumVotes)
}

// ColumnTypeError reports a column with an unexpected type, e.g. a currency column
// that was already converted by an earlier pass.
type ColumnTypeError struct {
	Column string
	Got    series.Type
	Want   series.Type
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("column %s has type %s, want %s", e.Column, e.Got, e.Want)
}
