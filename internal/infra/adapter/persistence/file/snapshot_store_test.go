package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-alert/internal/domain/entity"
)

func TestSnapshotStore_LoadMissingFile(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "posts_data.json"))

	snap, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestSnapshotStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "posts_data.json")
	store := NewSnapshotStore(path)

	want := entity.Snapshot{
		"chamberine3": {{ID: "post_2", Title: "새 글"}, {ID: "post_1", Title: "A & B"}},
		"ldhwc":       {},
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"title": "A & B"`)
	assert.Contains(t, string(raw), `"ldhwc": []`)
}

func TestSnapshotStore_SaveReplacesNotMerges(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "posts_data.json"))

	require.NoError(t, store.Save(ctx, entity.Snapshot{"a": {{ID: "post_1", Title: "x"}}}))
	require.NoError(t, store.Save(ctx, entity.Snapshot{"b": {{ID: "post_2", Title: "y"}}}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got.SourceIDs())
}

func TestSnapshotStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(filepath.Join(dir, "posts_data.json"))

	require.NoError(t, store.Save(context.Background(), entity.Snapshot{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "posts_data.json", entries[0].Name())
}

func TestSnapshotStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"blog": [`), 0o644))

	_, err := NewSnapshotStore(path).Load(context.Background())

	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestSnapshotStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "posts_data.json"))

	assert.ErrorIs(t, store.Save(ctx, entity.Snapshot{}), context.Canceled)
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSnapshotStore_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, NewSnapshotStore("").Path())
}
