package storage

import (
	"context"

	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresStore is a Store over a pgx connection pool.
type PostgresStore struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool. The store owns the pool and closes it in Close.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool}
}

func (s *PostgresStore) Driver() string {
	return postgresDialect.name
}

func (s *PostgresStore) QuoteIdentifier(name string) string {
	return postgresDialect.quote(name)
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) CreateTable(ctx context.Context, t schema.Table) error {
	for _, stmt := range createTableSQL(postgresDialect, t) {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Select(ctx context.Context, q SelectQuery, fn func(Row) error) error {
	query, args := selectSQL(postgresDialect, q)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return err
		}

		row := make(Row, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		if err := fn(row); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (s *PostgresStore) Insert(ctx context.Context, table string, row Row) (int64, error) {
	query, args := insertSQL(postgresDialect, table, row)

	var id int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, table string, row Row, where string, args ...any) (int64, error) {
	query, allArgs, err := updateSQL(postgresDialect, table, row, where, args)
	if err != nil {
		return 0, err
	}

	tag, err := s.db.Exec(ctx, query, allArgs...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Delete(ctx context.Context, table string, where string, args ...any) (int64, error) {
	query, allArgs := deleteSQL(postgresDialect, table, where, args)

	tag, err := s.db.Exec(ctx, query, allArgs...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
