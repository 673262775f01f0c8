package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/schema"
)

// SQLStore is a Store over database/sql. It serves the sqlite3, mysql and
// duckdb drivers, which differ only in dialect.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLStore wraps an open *sql.DB. driver selects the SQL dialect and must
// be one of "sqlite3", "mysql" or "duckdb".
func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	d, ok := sqlDialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

var sqlDialects = map[string]dialect{
	"sqlite3": sqliteDialect,
	"mysql":   mysqlDialect,
	"duckdb":  duckdbDialect,
}

func (s *SQLStore) Driver() string {
	return s.dialect.name
}

func (s *SQLStore) QuoteIdentifier(name string) string {
	return s.dialect.quote(name)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateTable creates t if it does not exist yet.
func (s *SQLStore) CreateTable(ctx context.Context, t schema.Table) error {
	for _, stmt := range createTableSQL(s.dialect, t) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Select(ctx context.Context, q SelectQuery, fn func(Row) error) error {
	query, args := selectSQL(s.dialect, q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return err
	}

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i], types[i].DatabaseTypeName())
		}
		if err := fn(row); err != nil {
			return err
		}
	}

	return rows.Err()
}

// normalizeValue turns driver byte slices into strings unless the column is
// binary. The mysql text protocol returns most types as []byte.
func normalizeValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	t := strings.ToUpper(dbType)
	if strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY") || t == "BYTEA" {
		return b
	}
	return string(b)
}

func (s *SQLStore) Insert(ctx context.Context, table string, row Row) (int64, error) {
	query, args := insertSQL(s.dialect, table, row)

	if s.dialect.returning {
		var id int64
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLStore) Update(ctx context.Context, table string, row Row, where string, args ...any) (int64, error) {
	query, allArgs, err := updateSQL(s.dialect, table, row, where, args)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, allArgs...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStore) Delete(ctx context.Context, table string, where string, args ...any) (int64, error) {
	query, allArgs := deleteSQL(s.dialect, table, where, args)

	res, err := s.db.ExecContext(ctx, query, allArgs...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
