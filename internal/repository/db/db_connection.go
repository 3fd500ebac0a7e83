// Package db opens the readings database and ensures the schema exists.
// Two engines are supported with identical logical behavior: a local SQLite
// file for single-host installs and PostgreSQL for hosted ones. The choice is
// made once at startup from configuration.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenSQLite opens/creates a SQLite DB file and ensures tables exist.
func OpenSQLite(path string) (*sql.DB, error) {
	conn, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings; SQLite is not great with many writers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(conn, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return conn, nil
}

// OpenPostgres connects to the given DATABASE_URL and ensures tables exist.
func OpenPostgres(url string) (*sql.DB, error) {
	conn, err := sql.Open(DriverPostgres, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := ensureSchema(conn, postgresSchema); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TIMESTAMP NOT NULL UNIQUE,
    t01_return REAL,
    t02_flow REAL,
    t04_outdoor REAL,
    t06_tank REAL,
    t12_compressor REAL,
    t33_comp_freq REAL,
    t39_power_kw REAL,
    d12_flow_rate REAL,
    cop_calculated REAL,
    heat_power_kw REAL,
    mode TEXT
);`,
	`CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp);`,
	`CREATE TABLE IF NOT EXISTS pump_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    description TEXT NOT NULL,
    value_before TEXT,
    value_after TEXT
);`,
	`CREATE INDEX IF NOT EXISTS idx_pump_events_occurred_at ON pump_events(occurred_at);`,
	`CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name TEXT,
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    admin_approved BOOLEAN NOT NULL DEFAULT FALSE,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL
);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS readings (
    id SERIAL PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL UNIQUE,
    t01_return REAL,
    t02_flow REAL,
    t04_outdoor REAL,
    t06_tank REAL,
    t12_compressor REAL,
    t33_comp_freq REAL,
    t39_power_kw REAL,
    d12_flow_rate REAL,
    cop_calculated REAL,
    heat_power_kw REAL,
    mode VARCHAR(10)
);`,
	`CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp);`,
	`CREATE TABLE IF NOT EXISTS pump_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    description TEXT NOT NULL,
    value_before TEXT,
    value_after TEXT
);`,
	`CREATE INDEX IF NOT EXISTS idx_pump_events_occurred_at ON pump_events(occurred_at);`,
	`CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    name VARCHAR(255),
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    admin_approved BOOLEAN NOT NULL DEFAULT FALSE,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL
);`,
}

func ensureSchema(conn *sql.DB, stmts []string) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction.
		_ = tx.Rollback()
	}()

	for i, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
