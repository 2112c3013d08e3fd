package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"post-alert/internal/repository"
	"post-alert/internal/resilience/circuitbreaker"
)

// DefaultMirrorName is the row key the snapshot is stored under.
const DefaultMirrorName = "posts_data"

// SnapshotMirror keeps a copy of the serialized snapshot in the state_mirror table.
// Writes are conditional on the version read earlier, so a concurrent writer
// produces repository.ErrVersionConflict instead of a silent overwrite.
type SnapshotMirror struct {
	cb   *circuitbreaker.DBCircuitBreaker
	name string
}

var _ repository.SnapshotMirror = (*SnapshotMirror)(nil)

// NewSnapshotMirror wraps db with the mirror circuit breaker.
func NewSnapshotMirror(db *sql.DB, name string) *SnapshotMirror {
	if name == "" {
		name = DefaultMirrorName
	}
	return &SnapshotMirror{
		cb:   circuitbreaker.NewDBCircuitBreakerWithConfig(db, circuitbreaker.MirrorConfig()),
		name: name,
	}
}

// ContentVersion returns the hex sha256 of content.
func ContentVersion(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (m *SnapshotMirror) Pull(ctx context.Context) ([]byte, string, error) {
	const query = `SELECT content, version FROM state_mirror WHERE name = $1`
	rows, err := m.cb.QueryContext(ctx, query, m.name)
	if err != nil {
		return nil, "", fmt.Errorf("pull snapshot mirror: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, "", fmt.Errorf("pull snapshot mirror: %w", err)
		}
		return nil, "", nil
	}

	var content []byte
	var version string
	if err := rows.Scan(&content, &version); err != nil {
		return nil, "", fmt.Errorf("scan snapshot mirror: %w", err)
	}
	return content, version, nil
}

// Push stores content when the stored version still equals expectedVersion.
// An empty expectedVersion means the row must not exist yet.
func (m *SnapshotMirror) Push(ctx context.Context, content []byte, expectedVersion string) (string, error) {
	newVersion := ContentVersion(content)

	var (
		res sql.Result
		err error
	)
	if expectedVersion == "" {
		const insert = `
INSERT INTO state_mirror (name, content, version)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO NOTHING`
		res, err = m.cb.ExecContext(ctx, insert, m.name, content, newVersion)
	} else {
		const update = `
UPDATE state_mirror
SET content = $1, version = $2, updated_at = now()
WHERE name = $3 AND version = $4`
		res, err = m.cb.ExecContext(ctx, update, content, newVersion, m.name, expectedVersion)
	}
	if err != nil {
		return "", fmt.Errorf("push snapshot mirror: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("push snapshot mirror: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: expected version %q", repository.ErrVersionConflict, expectedVersion)
	}
	return newVersion, nil
}

// IsOpen reports whether the mirror breaker is rejecting calls.
func (m *SnapshotMirror) IsOpen() bool {
	return m.cb.IsOpen()
}
