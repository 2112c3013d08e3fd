package db

import (
	"context"
	"database/sql"
)

// MigrateMirror creates the Postgres mirror schema. Safe to run on every start.
func MigrateMirror(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS state_mirror (
    name       TEXT PRIMARY KEY,
    content    BYTEA NOT NULL,
    version    TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	return err
}

// MigrateSQLite creates the local snapshot schema.
// snapshot_sources keeps sources whose last fetch returned zero posts.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshot_sources (
    source_id TEXT PRIMARY KEY
)`,
		`CREATE TABLE IF NOT EXISTS snapshot_records (
    source_id TEXT NOT NULL REFERENCES snapshot_sources(source_id),
    position  INTEGER NOT NULL,
    record_id TEXT NOT NULL,
    title     TEXT NOT NULL,
    PRIMARY KEY (source_id, record_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_records_order ON snapshot_records(source_id, position)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

