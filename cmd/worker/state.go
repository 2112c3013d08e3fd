package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"post-alert/internal/infra/adapter/persistence/file"
	pgRepo "post-alert/internal/infra/adapter/persistence/postgres"
	sqliteRepo "post-alert/internal/infra/adapter/persistence/sqlite"
	"post-alert/internal/infra/db"
	workerPkg "post-alert/internal/infra/worker"
	"post-alert/internal/observability/logging"
	"post-alert/internal/repository"
	"post-alert/internal/usecase/state"
	envconfig "post-alert/pkg/config"
)

// buildStateStore opens the local snapshot backend and, when
// MIRROR_DATABASE_URL is set, the Postgres mirror. An unreachable mirror is
// logged and skipped. The returned cleanup closes every opened database.
func buildStateStore(ctx context.Context, logger *slog.Logger, cfg *workerPkg.WorkerConfig) (*state.Service, func(), error) {
	var closers []*sql.DB
	cleanup := func() {
		for _, d := range closers {
			if err := d.Close(); err != nil {
				logger.Error("failed to close database", slog.Any("error", err))
			}
		}
	}

	path := cfg.ResolvedStatePath()
	var repo repository.SnapshotRepository
	switch cfg.StateBackend {
	case workerPkg.StateBackendSQLite:
		database, err := db.OpenSQLite(ctx, path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open sqlite state: %w", err)
		}
		closers = append(closers, database)
		if err := db.MigrateSQLite(ctx, database); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("migrate sqlite state: %w", err)
		}
		repo = sqliteRepo.NewSnapshotRepo(database)
	default:
		repo = file.NewSnapshotStore(path)
	}
	logger.Info("state store initialized",
		slog.String("backend", cfg.StateBackend),
		slog.String("path", path))

	var opts []state.Option
	if dsn := envconfig.GetEnvString("MIRROR_DATABASE_URL", ""); dsn != "" {
		mirrorDB, err := openMirror(ctx, dsn)
		if err != nil {
			logger.Warn("state mirror unavailable, continuing with local state only",
				slog.String("error", logging.SanitizeError(err)))
		} else {
			closers = append(closers, mirrorDB)
			name := envconfig.GetEnvString("MIRROR_NAME", pgRepo.DefaultMirrorName)
			opts = append(opts, state.WithMirror(pgRepo.NewSnapshotMirror(mirrorDB, name)))
			logger.Info("state mirror enabled", slog.String("name", name))
		}
	}

	return state.NewService(repo, opts...), cleanup, nil
}

func openMirror(ctx context.Context, dsn string) (*sql.DB, error) {
	database, err := db.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateMirror(ctx, database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate mirror: %w", err)
	}
	return database, nil
}
