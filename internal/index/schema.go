// Package index provides the SQLite-backed store of morphology analysis results.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS morphologies (
	path        TEXT PRIMARY KEY,
	label       TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	samples     INTEGER NOT NULL DEFAULT 0,
	apical      INTEGER NOT NULL DEFAULT 0,
	axons       INTEGER NOT NULL DEFAULT 0,
	basal       INTEGER NOT NULL DEFAULT 0,
	has_soma    INTEGER NOT NULL DEFAULT 0,
	run_id      TEXT NOT NULL DEFAULT '',
	analyzed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS analysis_results (
	path     TEXT NOT NULL REFERENCES morphologies(path) ON DELETE CASCADE,
	variable TEXT NOT NULL,
	value    REAL NOT NULL DEFAULT 0,
	apical   TEXT NOT NULL DEFAULT '[]',
	axon     TEXT NOT NULL DEFAULT '[]',
	basal    TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (path, variable)
);

CREATE INDEX IF NOT EXISTS idx_results_variable ON analysis_results(variable, value);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	trigger     TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	analyzed    INTEGER NOT NULL DEFAULT 0,
	removed     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
