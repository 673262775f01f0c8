package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/schema"
)

// createTableSQL returns the statements that create t, identity column
// included. Statements are idempotent.
func createTableSQL(d dialect, t schema.Table) []string {
	var stmts []string

	idDef := d.quote(schema.IDColumn) + " " + d.idType
	if d.sequences {
		seq := d.sequenceName(t.Name)
		stmts = append(stmts, fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s", d.quote(seq)))
		idDef += fmt.Sprintf(" DEFAULT nextval('%s')", seq)
	}

	defs := []string{idDef}
	for _, c := range t.Columns {
		def := d.quote(c.Name) + " " + d.types[c.Type]
		if c.NotNull {
			def += " NOT NULL"
		}
		if c.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}

	stmts = append(stmts, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		d.quote(t.Name),
		strings.Join(defs, ", "),
	))
	return stmts
}

// whereClause renders " WHERE <expr>" or "" for an empty expression.
func whereClause(where string) string {
	if strings.TrimSpace(where) == "" {
		return ""
	}
	return " WHERE " + where
}

func selectSQL(d dialect, q SelectQuery) (string, []any) {
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(d.quoteColumns(q.Columns), ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", cols, d.quote(q.Table), whereClause(q.Where))
	if q.OrderBy != "" {
		query += " ORDER BY " + q.OrderBy
	}
	return d.rebind(query), q.Args
}

// sortedColumns returns row's keys in a stable order so that generated SQL
// is deterministic.
func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func insertSQL(d dialect, table string, row Row) (string, []any) {
	var query string
	var args []any

	if len(row) == 0 {
		query = "INSERT INTO " + d.quote(table) + d.emptyInsert
	} else {
		cols := sortedColumns(row)
		placeholders := make([]string, len(cols))
		args = make([]any, len(cols))
		for i, col := range cols {
			placeholders[i] = "?"
			args[i] = row[col]
		}
		query = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			d.quote(table),
			strings.Join(d.quoteColumns(cols), ", "),
			strings.Join(placeholders, ", "),
		)
	}

	if d.returning {
		query += " RETURNING " + d.quote(schema.IDColumn)
	}
	return d.rebind(query), args
}

// updateSQL binds the SET values first and the filter arguments after them,
// matching the placeholder order in the statement.
func updateSQL(d dialect, table string, row Row, where string, whereArgs []any) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, ErrNoValues
	}

	cols := sortedColumns(row)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(whereArgs))
	for i, col := range cols {
		sets[i] = d.quote(col) + " = ?"
		args = append(args, row[col])
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf(
		"UPDATE %s SET %s%s",
		d.quote(table),
		strings.Join(sets, ", "),
		whereClause(where),
	)
	return d.rebind(query), args, nil
}

func deleteSQL(d dialect, table string, where string, args []any) (string, []any) {
	query := "DELETE FROM " + d.quote(table) + whereClause(where)
	return d.rebind(query), args
}
