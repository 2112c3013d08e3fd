package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"post-alert/internal/domain/entity"
	"post-alert/internal/observability/logging"
	"post-alert/internal/repository"
	"post-alert/internal/resilience/retry"
)

// Service is the state store used by the orchestrator.
//
// Load reads the local snapshot. When a mirror is configured it is pulled
// too: its version is remembered for the next Push and, if the local
// snapshot is empty, its content seeds the run.
//
// Save writes the local store first; failure there is fatal. The mirror
// push that follows only logs on failure, including version conflicts.
type Service struct {
	repo     repository.SnapshotRepository
	mirror   repository.SnapshotMirror
	retryCfg retry.Config

	mu            sync.Mutex
	mirrorVersion string
	mirrorSynced  bool
}

// Option configures a Service.
type Option func(*Service)

// WithMirror attaches a remote mirror. A nil mirror is ignored.
func WithMirror(m repository.SnapshotMirror) Option {
	return func(s *Service) {
		if m != nil {
			s.mirror = m
		}
	}
}

// WithRetryConfig overrides the retry policy for mirror calls.
func WithRetryConfig(cfg retry.Config) Option {
	return func(s *Service) { s.retryCfg = cfg }
}

func NewService(repo repository.SnapshotRepository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		retryCfg: retry.MirrorConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the snapshot to diff against. It never returns nil; on
// error the snapshot is empty and the error wraps ErrLoadFailed.
func (s *Service) Load(ctx context.Context) (entity.Snapshot, error) {
	logger := logging.FromContext(ctx)

	local, localErr := s.repo.Load(ctx)
	if localErr != nil {
		logger.Warn("local snapshot unreadable",
			slog.Any("error", localErr))
		local = nil
	}

	mirrored, mirrorErr := s.pull(ctx)
	if mirrorErr != nil {
		logger.Warn("snapshot mirror pull failed",
			slog.Any("error", mirrorErr))
	}

	switch {
	case len(local) > 0:
		stateLoadTotal.WithLabelValues("local").Inc()
		return local, nil
	case len(mirrored) > 0:
		logger.Info("snapshot seeded from mirror",
			slog.Int("sources", len(mirrored)),
			slog.Int("records", mirrored.RecordCount()))
		stateLoadTotal.WithLabelValues("mirror").Inc()
		return mirrored, nil
	case localErr != nil:
		stateLoadTotal.WithLabelValues("empty").Inc()
		return entity.Snapshot{}, fmt.Errorf("%w: %w", ErrLoadFailed, localErr)
	case local != nil:
		stateLoadTotal.WithLabelValues("local").Inc()
		return local, nil
	default:
		stateLoadTotal.WithLabelValues("empty").Inc()
		return entity.Snapshot{}, nil
	}
}

// pull fetches the mirror and records its version. A nil snapshot with a
// nil error means no mirror is configured or nothing is stored.
func (s *Service) pull(ctx context.Context) (entity.Snapshot, error) {
	if s.mirror == nil {
		return nil, nil
	}

	s.mu.Lock()
	s.mirrorSynced = false
	s.mu.Unlock()

	var content []byte
	var version string
	err := retry.WithBackoff(ctx, s.retryCfg, func() error {
		var pullErr error
		content, version, pullErr = s.mirror.Pull(ctx)
		return pullErr
	})
	if err != nil {
		stateMirrorOpsTotal.WithLabelValues("pull", "error").Inc()
		return nil, err
	}
	stateMirrorOpsTotal.WithLabelValues("pull", "success").Inc()

	s.mu.Lock()
	s.mirrorVersion = version
	s.mirrorSynced = true
	s.mu.Unlock()

	if len(content) == 0 {
		return nil, nil
	}
	snap, err := entity.UnmarshalSnapshot(content)
	if err != nil {
		return nil, fmt.Errorf("mirror content: %w", err)
	}
	return snap, nil
}

// Save fully replaces the stored snapshot.
func (s *Service) Save(ctx context.Context, snapshot entity.Snapshot) error {
	logger := logging.FromContext(ctx)

	if err := s.repo.Save(ctx, snapshot); err != nil {
		stateSaveTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	stateSaveTotal.WithLabelValues("success").Inc()
	stateRecords.Set(float64(snapshot.RecordCount()))

	if s.mirror == nil {
		return nil
	}
	if err := s.push(ctx, snapshot); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			logger.Warn("snapshot mirror changed since load, local copy kept",
				slog.Any("error", err))
		} else {
			logger.Warn("snapshot mirror push failed",
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) push(ctx context.Context, snapshot entity.Snapshot) error {
	s.mu.Lock()
	expected, synced := s.mirrorVersion, s.mirrorSynced
	s.mu.Unlock()

	if !synced {
		stateMirrorOpsTotal.WithLabelValues("push", "skipped").Inc()
		return errors.New("mirror version unknown, pull did not succeed this run")
	}

	content, err := entity.MarshalSnapshot(snapshot)
	if err != nil {
		stateMirrorOpsTotal.WithLabelValues("push", "error").Inc()
		return err
	}

	var newVersion string
	err = retry.WithBackoff(ctx, s.retryCfg, func() error {
		var pushErr error
		newVersion, pushErr = s.mirror.Push(ctx, content, expected)
		return pushErr
	})
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		stateMirrorOpsTotal.WithLabelValues("push", "conflict").Inc()
		return err
	case err != nil:
		stateMirrorOpsTotal.WithLabelValues("push", "error").Inc()
		return err
	}
	stateMirrorOpsTotal.WithLabelValues("push", "success").Inc()

	s.mu.Lock()
	s.mirrorVersion = newVersion
	s.mu.Unlock()
	return nil
}

// MirrorVersion returns the last mirror version seen, or "" when unknown.
func (s *Service) MirrorVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirrorVersion
}
