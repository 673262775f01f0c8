// Package storage is the thin facade over the relational engine backing a
// provider. It knows how to create a table with its implicit identity column
// and how to run single-table filtered select, insert, update and delete.
//
// Filter expressions always use "?" positional placeholders. Each backend
// rebinds them to its own syntax, so callers never splice values into SQL.
package storage

import (
	"context"
	"errors"

	"github.com/JonMunkholm/tableroute/internal/schema"
)

// ErrNoValues is returned by Update when the row carries no columns.
var ErrNoValues = errors.New("empty values: nothing to update")

// Row is one record keyed by column name.
type Row map[string]any

// SelectQuery describes a filtered single-table scan.
type SelectQuery struct {
	Table   string
	Columns []string // empty selects every column
	Where   string   // predicate with ? placeholders, may be empty
	Args    []any
	OrderBy string // validated ORDER BY terms, may be empty
}

// Store is implemented by every storage backend.
type Store interface {
	schema.TableCreator

	// Select streams matching rows to fn. Iteration stops at the first
	// error fn returns, and that error is returned.
	Select(ctx context.Context, q SelectQuery, fn func(Row) error) error

	// Insert adds row to table and returns the generated identity value.
	Insert(ctx context.Context, table string, row Row) (int64, error)

	// Update sets row's columns on every matching record and returns the
	// number of records affected.
	Update(ctx context.Context, table string, row Row, where string, args ...any) (int64, error)

	// Delete removes matching records and returns how many were removed.
	Delete(ctx context.Context, table string, where string, args ...any) (int64, error)

	// Driver names the backend ("postgres", "sqlite3", "mysql", "duckdb").
	Driver() string

	// QuoteIdentifier quotes a table or column name for use in filter and
	// ORDER BY expressions passed back to this store.
	QuoteIdentifier(name string) string

	Close() error
}
