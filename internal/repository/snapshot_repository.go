package repository

import (
	"context"
	"errors"

	"post-alert/internal/domain/entity"
)

// ErrVersionConflict is returned by SnapshotMirror.Push when the stored
// version no longer matches the expected one.
var ErrVersionConflict = errors.New("snapshot version conflict")

// SnapshotRepository persists the snapshot observed by the last run.
//
// Load returns an empty snapshot, not an error, when nothing has been saved yet.
// Save fully replaces the stored snapshot and is atomic: a reader sees either
// the previous snapshot or the new one.
type SnapshotRepository interface {
	Load(ctx context.Context) (entity.Snapshot, error)
	Save(ctx context.Context, snapshot entity.Snapshot) error
}

// SnapshotMirror is an optional remote copy of the serialized snapshot,
// guarded by a content version for optimistic concurrency.
//
// Pull returns empty content and an empty version when nothing is stored.
// Push stores content only if the current version equals expectedVersion
// and returns the new version, or ErrVersionConflict.
type SnapshotMirror interface {
	Pull(ctx context.Context) (content []byte, version string, err error)
	Push(ctx context.Context, content []byte, expectedVersion string) (newVersion string, err error)
}
