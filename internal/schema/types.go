// Package schema holds the table definitions a store is built from.
//
// A Schema is registered once at startup and is immutable afterwards. Every
// table carries an implicit integer identity column, IDColumn, that storage
// backends create as an auto-assigned primary key.
package schema

import (
	"fmt"
	"strings"
)

// IDColumn is the identity column present in every table.
const IDColumn = "_id"

// ColumnType is the declared storage type of a column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeInteger ColumnType = "integer"
	TypeReal    ColumnType = "real"
	TypeBlob    ColumnType = "blob"
	TypeBoolean ColumnType = "boolean"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeText, TypeInteger, TypeReal, TypeBlob, TypeBoolean:
		return true
	}
	return false
}

// ParseColumnType converts a type name to a ColumnType (case-insensitive).
// "int" and "string" are accepted as aliases.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string":
		return TypeText, nil
	case "integer", "int":
		return TypeInteger, nil
	case "real", "float", "double":
		return TypeReal, nil
	case "blob", "bytes":
		return TypeBlob, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

// Column is a single named, typed column of a table.
type Column struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	NotNull bool       `json:"notNull,omitempty"`
	Unique  bool       `json:"unique,omitempty"`
}

// Table is a named relation. Columns holds the declared columns only;
// IDColumn is implied.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// NewTable is a convenience constructor for code-defined schemas.
func NewTable(name string, columns ...Column) Table {
	return Table{Name: name, Columns: columns}
}

// Text, Integer, Real, Blob and Boolean build nullable columns of their type.
func Text(name string) Column    { return Column{Name: name, Type: TypeText} }
func Integer(name string) Column { return Column{Name: name, Type: TypeInteger} }
func Real(name string) Column    { return Column{Name: name, Type: TypeReal} }
func Blob(name string) Column    { return Column{Name: name, Type: TypeBlob} }
func Boolean(name string) Column { return Column{Name: name, Type: TypeBoolean} }

// NotNullable returns a copy of c with NOT NULL set.
func (c Column) NotNullable() Column {
	c.NotNull = true
	return c
}

// Distinct returns a copy of c with a UNIQUE constraint.
func (c Column) Distinct() Column {
	c.Unique = true
	return c
}

// clone returns t with its own copy of the column slice.
func (t Table) clone() Table {
	cols := make([]Column, len(t.Columns))
	copy(cols, t.Columns)
	return Table{Name: t.Name, Columns: cols}
}

// AllColumns returns every column name including IDColumn, which comes first.
func (t Table) AllColumns() []string {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, IDColumn)
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
	}
	return cols
}

// HasColumn reports whether name is a column of t, IDColumn included.
func (t Table) HasColumn(name string) bool {
	if name == IDColumn {
		return true
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Column returns the declared column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Schema is the full set of tables of one store.
type Schema struct {
	Provider string  `json:"provider,omitempty"`
	Name     string  `json:"name"`
	Version  int     `json:"version"`
	Tables   []Table `json:"tables"`
}
