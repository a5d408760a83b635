// Package storage persists the turn audit log: one row per answered chat
// turn, used for operational review of what the bot said and which path
// produced it.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// DB wraps the SQLite connection holding the turn log.
type DB struct {
	conn *sql.DB
	path string
}

// New opens (or creates) the database and initializes the schema.
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	// WAL keeps readers unblocked while turns are appended.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: dbPath}
	if err := initSchema(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// NewTestDB creates an in-memory database for tests.
func NewTestDB() (*DB, error) {
	return New(":memory:")
}

func initSchema(conn *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_key  TEXT    NOT NULL,
	request_id   TEXT    NOT NULL,
	message      TEXT    NOT NULL,
	response     TEXT    NOT NULL,
	intent       TEXT    NOT NULL,
	path         TEXT    NOT NULL,
	course_id    TEXT    NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at);
CREATE INDEX IF NOT EXISTS idx_turns_session_key ON turns(session_key);
`
	_, err := conn.Exec(schema)
	return err
}
