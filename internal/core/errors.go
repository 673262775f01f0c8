package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotOpen is returned by data operations before a successful Open.
	ErrNotOpen = errors.New("provider not open: storage is not ready")

	// ErrInvalidProjection matches any *InvalidProjectionError.
	ErrInvalidProjection = errors.New("invalid projection")

	// ErrUnsupportedScope matches any *UnsupportedScopeError.
	ErrUnsupportedScope = errors.New("unsupported scope")

	// ErrInvalidFilter matches any *InvalidFilterError.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidCSV is returned by ImportCSV for an unusable header.
	ErrInvalidCSV = errors.New("invalid csv")
)

// InvalidProjectionError lists requested columns that the table does not
// have. It is also used for unknown keys in written rows and ORDER BY terms.
type InvalidProjectionError struct {
	Table   string
	Unknown []string
}

func (e *InvalidProjectionError) Error() string {
	return fmt.Sprintf("invalid projection for table %s: unknown columns %s",
		e.Table, strings.Join(e.Unknown, ", "))
}

func (e *InvalidProjectionError) Is(target error) bool { return target == ErrInvalidProjection }

// UnsupportedScopeError is returned for an operation that is not defined on
// the addressed scope, such as creating a row at a row address.
type UnsupportedScopeError struct {
	Op   string
	Path string
}

func (e *UnsupportedScopeError) Error() string {
	return fmt.Sprintf("unsupported scope: cannot %s at %s", e.Op, e.Path)
}

func (e *UnsupportedScopeError) Is(target error) bool { return target == ErrUnsupportedScope }

// InvalidFilterError reports a structured filter that cannot be compiled.
type InvalidFilterError struct {
	Column string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter on %s: %s", e.Column, e.Reason)
}

func (e *InvalidFilterError) Is(target error) bool { return target == ErrInvalidFilter }
