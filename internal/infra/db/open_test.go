package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()

	assert.Equal(t, 4, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, 1*time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 10*time.Minute, cfg.ConnMaxIdleTime)
}

func TestGetConnectionConfigFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want ConnectionConfig
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: DefaultConnectionConfig(),
		},
		{
			name: "all custom values",
			env: map[string]string{
				"DB_MAX_OPEN_CONNS":     "8",
				"DB_MAX_IDLE_CONNS":     "3",
				"DB_CONN_MAX_LIFETIME":  "2h",
				"DB_CONN_MAX_IDLE_TIME": "45m",
			},
			want: ConnectionConfig{
				MaxOpenConns:    8,
				MaxIdleConns:    3,
				ConnMaxLifetime: 2 * time.Hour,
				ConnMaxIdleTime: 45 * time.Minute,
			},
		},
		{
			name: "invalid values fall back",
			env: map[string]string{
				"DB_MAX_OPEN_CONNS":     "invalid",
				"DB_MAX_IDLE_CONNS":     "-1",
				"DB_CONN_MAX_LIFETIME":  "0s",
				"DB_CONN_MAX_IDLE_TIME": "soon",
			},
			want: DefaultConnectionConfig(),
		},
		{
			name: "partial custom values",
			env: map[string]string{
				"DB_MAX_OPEN_CONNS":    "6",
				"DB_CONN_MAX_LIFETIME": "3h",
			},
			want: ConnectionConfig{
				MaxOpenConns:    6,
				MaxIdleConns:    2,
				ConnMaxLifetime: 3 * time.Hour,
				ConnMaxIdleTime: 10 * time.Minute,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME"} {
				t.Setenv(key, tt.env[key])
			}
			assert.Equal(t, tt.want, getConnectionConfigFromEnv())
		})
	}
}

/* ──────────────────────────────── Open ──────────────────────────────── */

func TestOpenPostgres_EmptyDSN(t *testing.T) {
	db, err := OpenPostgres(context.Background(), "  ")
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrEmptyDSN)
}

func TestOpenPostgres_Integration(t *testing.T) {
	dsn := os.Getenv("MIRROR_DATABASE_URL")
	if dsn == "" {
		t.Skip("MIRROR_DATABASE_URL not set, skipping integration test")
	}

	db, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, MigrateMirror(context.Background(), db))
}

func TestOpenSQLite_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	db, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyDSN)
}
