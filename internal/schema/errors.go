package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTable matches any *DuplicateTableError.
	ErrDuplicateTable = errors.New("duplicate table")
	// ErrUnknownTable matches any *UnknownTableError.
	ErrUnknownTable = errors.New("unknown table")
	// ErrStorageInit matches any *StorageInitError.
	ErrStorageInit = errors.New("storage init failed")
)

// DuplicateTableError is returned when two tables share a name.
type DuplicateTableError struct {
	Name string
}

func (e *DuplicateTableError) Error() string {
	return fmt.Sprintf("duplicate table: %s", e.Name)
}

func (e *DuplicateTableError) Is(target error) bool { return target == ErrDuplicateTable }

// UnknownTableError is returned when a table name is not registered.
type UnknownTableError struct {
	Name string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table: %s", e.Name)
}

func (e *UnknownTableError) Is(target error) bool { return target == ErrUnknownTable }

// DuplicateColumnError is returned when a column name repeats within a table,
// or when a table declares IDColumn itself.
type DuplicateColumnError struct {
	Table  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column %s in table %s", e.Column, e.Table)
}

// InvalidNameError is returned for table or column names that cannot be used
// as path segments and SQL identifiers.
type InvalidNameError struct {
	Kind string // "table" or "column"
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid %s name: %q", e.Kind, e.Name)
}

// StorageInitError reports the table whose creation failed. Tables created
// before it are left in place.
type StorageInitError struct {
	Table string
	Err   error
}

func (e *StorageInitError) Error() string {
	return fmt.Sprintf("create table %s: %v", e.Table, e.Err)
}

func (e *StorageInitError) Unwrap() error { return e.Err }

func (e *StorageInitError) Is(target error) bool { return target == ErrStorageInit }
