package postgres_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-alert/internal/infra/adapter/persistence/postgres"
	"post-alert/internal/repository"
)

/* ───────── ヘルパ ───────── */

func newMirror(t *testing.T) (*postgres.SnapshotMirror, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.NewSnapshotMirror(db, ""), mock
}

/* ───────── Pull ───────── */

func TestSnapshotMirror_Pull(t *testing.T) {
	t.Run("TC-1: stored row", func(t *testing.T) {
		mirror, mock := newMirror(t)
		content := []byte(`{"blog":[]}`)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT content, version FROM state_mirror WHERE name = $1")).
			WithArgs(postgres.DefaultMirrorName).
			WillReturnRows(sqlmock.NewRows([]string{"content", "version"}).
				AddRow(content, postgres.ContentVersion(content)))

		got, version, err := mirror.Pull(context.Background())

		require.NoError(t, err)
		assert.Equal(t, content, got)
		assert.Equal(t, postgres.ContentVersion(content), version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TC-2: nothing stored", func(t *testing.T) {
		mirror, mock := newMirror(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT content, version FROM state_mirror")).
			WithArgs(postgres.DefaultMirrorName).
			WillReturnRows(sqlmock.NewRows([]string{"content", "version"}))

		got, version, err := mirror.Pull(context.Background())

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, version)
	})

	t.Run("TC-3: query error", func(t *testing.T) {
		mirror, mock := newMirror(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT content, version FROM state_mirror")).
			WillReturnError(sql.ErrConnDone)

		_, _, err := mirror.Pull(context.Background())

		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}

/* ───────── Push ───────── */

func TestSnapshotMirror_Push(t *testing.T) {
	content := []byte(`{"blog":[{"id":"post_1","title":"t"}]}`)
	newVersion := postgres.ContentVersion(content)

	t.Run("TC-1: first push inserts", func(t *testing.T) {
		mirror, mock := newMirror(t)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO state_mirror (name, content, version)")).
			WithArgs(postgres.DefaultMirrorName, content, newVersion).
			WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := mirror.Push(context.Background(), content, "")

		require.NoError(t, err)
		assert.Equal(t, newVersion, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TC-2: update with matching version", func(t *testing.T) {
		mirror, mock := newMirror(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE state_mirror")).
			WithArgs(content, newVersion, postgres.DefaultMirrorName, "v-old").
			WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := mirror.Push(context.Background(), content, "v-old")

		require.NoError(t, err)
		assert.Equal(t, newVersion, got)
	})

	t.Run("TC-3: stale version conflicts", func(t *testing.T) {
		mirror, mock := newMirror(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE state_mirror")).
			WithArgs(content, newVersion, postgres.DefaultMirrorName, "v-stale").
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := mirror.Push(context.Background(), content, "v-stale")

		assert.ErrorIs(t, err, repository.ErrVersionConflict)
	})

	t.Run("TC-4: insert races another writer", func(t *testing.T) {
		mirror, mock := newMirror(t)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO state_mirror")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := mirror.Push(context.Background(), content, "")

		assert.ErrorIs(t, err, repository.ErrVersionConflict)
	})

	t.Run("TC-5: breaker opens after repeated failures", func(t *testing.T) {
		mirror, mock := newMirror(t)

		for i := 0; i < 3; i++ {
			mock.ExpectExec(regexp.QuoteMeta("UPDATE state_mirror")).
				WillReturnError(sql.ErrConnDone)
		}
		for i := 0; i < 3; i++ {
			_, err := mirror.Push(context.Background(), content, "v")
			assert.ErrorIs(t, err, sql.ErrConnDone)
		}

		assert.True(t, mirror.IsOpen())
		_, err := mirror.Push(context.Background(), content, "v")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContentVersion(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		postgres.ContentVersion(nil))
	assert.NotEqual(t, postgres.ContentVersion([]byte("a")), postgres.ContentVersion([]byte("b")))
}
