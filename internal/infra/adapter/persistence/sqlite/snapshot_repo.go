package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"post-alert/internal/domain/entity"
	"post-alert/internal/repository"
)

// SnapshotRepo stores the snapshot in two tables created by db.MigrateSQLite.
// Save replaces every row inside one transaction.
type SnapshotRepo struct{ db *sql.DB }

var _ repository.SnapshotRepository = (*SnapshotRepo)(nil)

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (repo *SnapshotRepo) Load(ctx context.Context) (entity.Snapshot, error) {
	snap := entity.Snapshot{}
	if err := repo.loadSources(ctx, snap); err != nil {
		return nil, err
	}
	if err := repo.loadRecords(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// The pool holds one connection, so each result set is closed before the next query.
func (repo *SnapshotRepo) loadSources(ctx context.Context, snap entity.Snapshot) error {
	rows, err := repo.db.QueryContext(ctx, `SELECT source_id FROM snapshot_sources`)
	if err != nil {
		return fmt.Errorf("load snapshot sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan snapshot source: %w", err)
		}
		snap[id] = []entity.Record{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate snapshot sources: %w", err)
	}
	return nil
}

func (repo *SnapshotRepo) loadRecords(ctx context.Context, snap entity.Snapshot) error {
	const query = `
SELECT source_id, record_id, title
FROM snapshot_records
ORDER BY source_id, position`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("load snapshot records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var sourceID string
		var rec entity.Record
		if err := rows.Scan(&sourceID, &rec.ID, &rec.Title); err != nil {
			return fmt.Errorf("scan snapshot record: %w", err)
		}
		snap[sourceID] = append(snap[sourceID], rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate snapshot records: %w", err)
	}
	return nil
}

func (repo *SnapshotRepo) Save(ctx context.Context, snapshot entity.Snapshot) (err error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM snapshot_records`); err != nil {
		return fmt.Errorf("clear snapshot records: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM snapshot_sources`); err != nil {
		return fmt.Errorf("clear snapshot sources: %w", err)
	}

	for _, sourceID := range snapshot.SourceIDs() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot_sources (source_id) VALUES (?)`, sourceID); err != nil {
			return fmt.Errorf("insert snapshot source %s: %w", sourceID, err)
		}
		for pos, rec := range snapshot[sourceID] {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO snapshot_records (source_id, position, record_id, title) VALUES (?, ?, ?, ?)`,
				sourceID, pos, rec.ID, rec.Title); err != nil {
				return fmt.Errorf("insert snapshot record %s/%s: %w", sourceID, rec.ID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}
