package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go-sql-driver/mysql"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
)

// Options configures Open.
type Options struct {
	Driver          string // postgres, sqlite3, mysql or duckdb
	DSN             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Drivers lists the accepted Options.Driver values.
var Drivers = []string{"postgres", "sqlite3", "mysql", "duckdb"}

// Open connects to the configured backend and verifies the connection.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "postgres", "pgx":
		return openPostgres(ctx, opts)
	case "sqlite3", "sqlite", "mysql", "duckdb":
		return openSQL(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", opts.Driver)
	}
}

func openPostgres(ctx context.Context, opts Options) (Store, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database pool configured",
		"driver", "postgres",
		"max_conns", poolConfig.MaxConns,
		"min_conns", poolConfig.MinConns,
		"max_conn_lifetime", poolConfig.MaxConnLifetime,
		"max_conn_idle_time", poolConfig.MaxConnIdleTime,
	)

	return NewPostgresStore(pool), nil
}

func openSQL(ctx context.Context, opts Options) (Store, error) {
	driver := opts.Driver
	if driver == "sqlite" {
		driver = "sqlite3"
	}

	var db *sql.DB
	if driver == "mysql" {
		cfg, err := mysqlConfig(opts.DSN)
		if err != nil {
			return nil, err
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		var err error
		db, err = sql.Open(driver, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", driver, err)
		}
	}

	switch driver {
	case "sqlite3", "duckdb":
		// A single connection keeps in-memory databases shared and
		// serializes writers.
		db.SetMaxOpenConns(1)
	default:
		if opts.MaxConns > 0 {
			db.SetMaxOpenConns(opts.MaxConns)
		}
		if opts.MinConns > 0 {
			db.SetMaxIdleConns(opts.MinConns)
		}
	}
	if opts.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(opts.MaxConnLifetime)
	}
	if opts.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.MaxConnIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	slog.Info("database pool configured", "driver", driver)

	return NewSQLStore(db, driver)
}

// mysqlConfig parses dsn and turns on found-rows reporting, so an UPDATE
// counts matched rows rather than changed rows.
func mysqlConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg, nil
}
