// Package file stores the snapshot as a JSON document on the local filesystem.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"post-alert/internal/domain/entity"
	"post-alert/internal/repository"
)

// DefaultPath is the state file name used when none is configured.
const DefaultPath = "posts_data.json"

// SnapshotStore implements repository.SnapshotRepository over a single JSON file.
// Save writes a temp file in the same directory and renames it over the target.
type SnapshotStore struct {
	path string
}

var _ repository.SnapshotRepository = (*SnapshotStore)(nil)

// NewSnapshotStore returns a store for path, or DefaultPath when path is empty.
func NewSnapshotStore(path string) *SnapshotStore {
	if path == "" {
		path = DefaultPath
	}
	return &SnapshotStore{path: path}
}

// Path returns the state file location.
func (s *SnapshotStore) Path() string { return s.path }

// Load reads the state file. A missing file yields an empty snapshot.
func (s *SnapshotStore) Load(ctx context.Context) (entity.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entity.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", s.path, err)
	}
	snap, err := entity.UnmarshalSnapshot(b)
	if err != nil {
		return nil, fmt.Errorf("state file %s: %w", s.path, err)
	}
	return snap, nil
}

// Save replaces the state file atomically.
func (s *SnapshotStore) Save(ctx context.Context, snapshot entity.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := entity.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}
	return writeAtomic(s.path, b)
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
