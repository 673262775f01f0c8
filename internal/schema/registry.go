package schema

import (
	"context"
	"fmt"
	"regexp"
)

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableCreator is the part of a storage backend the registry needs to
// materialise its tables.
type TableCreator interface {
	CreateTable(ctx context.Context, table Table) error
}

// Registry is the fixed, validated table list of one store.
// It is read-only after NewRegistry returns and safe for concurrent use.
type Registry struct {
	tables []Table
	byName map[string]int
}

// NewRegistry validates tables and builds a registry in registration order.
func NewRegistry(tables ...Table) (*Registry, error) {
	r := &Registry{
		tables: make([]Table, 0, len(tables)),
		byName: make(map[string]int, len(tables)),
	}

	for _, t := range tables {
		if !identifierRE.MatchString(t.Name) {
			return nil, &InvalidNameError{Kind: "table", Name: t.Name}
		}
		if _, exists := r.byName[t.Name]; exists {
			return nil, &DuplicateTableError{Name: t.Name}
		}
		if err := validateColumns(t); err != nil {
			return nil, err
		}

		r.byName[t.Name] = len(r.tables)
		r.tables = append(r.tables, t.clone())
	}

	return r, nil
}

func validateColumns(t Table) error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == IDColumn || seen[c.Name] {
			return &DuplicateColumnError{Table: t.Name, Column: c.Name}
		}
		if !identifierRE.MatchString(c.Name) {
			return &InvalidNameError{Kind: "column", Name: c.Name}
		}
		if !c.Type.Valid() {
			return fmt.Errorf("table %s column %s: unknown type %q", t.Name, c.Name, c.Type)
		}
		seen[c.Name] = true
	}
	return nil
}

// TableByName returns the table registered under name.
func (r *Registry) TableByName(name string) (Table, error) {
	i, ok := r.byName[name]
	if !ok {
		return Table{}, &UnknownTableError{Name: name}
	}
	return r.tables[i].clone(), nil
}

// Index returns the registration position of a table, or -1.
func (r *Registry) Index(name string) int {
	if i, ok := r.byName[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether table has column. Unknown tables have no columns.
func (r *Registry) HasColumn(table, column string) bool {
	i, ok := r.byName[table]
	if !ok {
		return false
	}
	return r.tables[i].HasColumn(column)
}

// Tables returns the registered tables in registration order.
func (r *Registry) Tables() []Table {
	out := make([]Table, len(r.tables))
	for i, t := range r.tables {
		out[i] = t.clone()
	}
	return out
}

// TableCount returns the number of registered tables.
func (r *Registry) TableCount() int {
	return len(r.tables)
}

// CreateAll creates every registered table through c, in registration order.
// It stops at the first failure and returns a *StorageInitError; tables that
// were already created are not dropped.
func (r *Registry) CreateAll(ctx context.Context, c TableCreator) error {
	for _, t := range r.tables {
		if err := c.CreateTable(ctx, t); err != nil {
			return &StorageInitError{Table: t.Name, Err: err}
		}
	}
	return nil
}
