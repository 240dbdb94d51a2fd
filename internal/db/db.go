// Package db opens the relational store and owns the schema DDL used
// by fresh local installs and the test harness.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	pgdialect "github.com/example/archon/internal/adapters/postgres"
	sqlitedialect "github.com/example/archon/internal/adapters/sqlite"
	"github.com/example/archon/internal/ports/secondary"
)

// Options configures the store connection. The handle is constructed
// once at process start and closed at shutdown; nothing in the engine
// reaches for a shared global.
type Options struct {
	// Driver is "sqlite3" or "pgx".
	Driver string
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the store and returns the handle together with the
// matching dialect. SQLite stores get foreign keys enabled and the
// local schema applied; PostgreSQL deployments own their migrations.
func Open(opts Options) (*sql.DB, secondary.Dialect, error) {
	switch opts.Driver {
	case "", "sqlite3":
		return openSQLite(opts)
	case "pgx", "postgres":
		return openPostgres(opts)
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func openSQLite(opts Options) (*sql.DB, secondary.Dialect, error) {
	dsn := opts.DSN
	if dsn == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir := filepath.Join(home, ".archon")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create .archon directory: %w", err)
		}
		dsn = filepath.Join(dir, "archon.db")
	}

	handle, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := handle.Exec("PRAGMA foreign_keys = ON"); err != nil {
		handle.Close()
		return nil, nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := handle.Exec(GetSchemaSQL()); err != nil {
		handle.Close()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	applyPool(handle, opts)
	return handle, sqlitedialect.New(), nil
}

func openPostgres(opts Options) (*sql.DB, secondary.Dialect, error) {
	handle, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	applyPool(handle, opts)
	return handle, pgdialect.New(), nil
}

func applyPool(handle *sql.DB, opts Options) {
	if opts.MaxOpenConns > 0 {
		handle.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		handle.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		handle.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
}
