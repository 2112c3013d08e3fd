package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"post-alert/internal/domain/entity"
	"post-alert/internal/observability/logging"
	"post-alert/internal/observability/metrics"
	"post-alert/internal/observability/tracing"
	"post-alert/internal/repository"
	"post-alert/internal/resilience/retry"
	"post-alert/internal/usecase/detect"
	"post-alert/internal/usecase/notify"
)

// PageFetcher returns the raw post records of one source's listing.
// A rendered listing with no posts is nil, nil; any failure wraps ErrFeedFetchFailed.
type PageFetcher interface {
	Fetch(ctx context.Context, source entity.Source) ([]entity.RawRecord, error)
}

// StateStore loads the snapshot of the previous run and persists the current one.
type StateStore interface {
	Load(ctx context.Context) (entity.Snapshot, error)
	Save(ctx context.Context, snapshot entity.Snapshot) error
}

// ChangeNotifier delivers one change to every recipient and reports per-recipient results.
type ChangeNotifier interface {
	Notify(ctx context.Context, change entity.Change, recipients []entity.Recipient) []entity.DeliveryResult
}

// Config controls a Service.
type Config struct {
	// Recipients receive every change, in this order.
	Recipients []entity.Recipient

	// PreserveOnFetchFailure keeps a source's previous records when its fetch
	// fails. When false the source is persisted as empty.
	PreserveOnFetchFailure bool

	// DryRun detects and logs changes but neither notifies nor persists.
	DryRun bool

	// PermalinkBase overrides entity.DefaultPermalinkBase.
	PermalinkBase string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{PreserveOnFetchFailure: true}
}

// Service runs the alert pipeline over the configured sources.
type Service struct {
	SourceRepo repository.SourceRepository
	Fetcher    PageFetcher
	State      StateStore
	Notifier   ChangeNotifier
	cfg        Config
	linker     detect.Linker
}

// NewService creates a fetch Service. notifier may be nil when cfg.DryRun is set.
func NewService(
	sourceRepo repository.SourceRepository,
	fetcher PageFetcher,
	state StateStore,
	notifier ChangeNotifier,
	cfg Config,
) *Service {
	return &Service{
		SourceRepo: sourceRepo,
		Fetcher:    fetcher,
		State:      state,
		Notifier:   notifier,
		cfg:        cfg,
		linker:     detect.PermalinkLinker(cfg.PermalinkBase),
	}
}

// SourceReport describes what happened to one source during a run.
type SourceReport struct {
	SourceID     string
	Fetched      int // raw records scraped
	Posts        int // records kept after validation and dedup
	Dropped      int
	New          int
	TitleChanged int
	Sent         int
	Failed       int
	Degraded     bool
	Preserved    bool // previous records kept because the fetch failed
	Err          error
	Duration     time.Duration
}

// Changes returns the number of changes detected for the source.
func (r SourceReport) Changes() int { return r.New + r.TitleChanged }

// CrawlStats contains statistics about a pipeline run.
type CrawlStats struct {
	RunID               string
	Sources             int
	Posts               int
	Dropped             int
	Changes             int
	NotificationsSent   int
	NotificationsFailed int
	DegradedSources     []string
	Persisted           bool
	DryRun              bool
	Reports             []SourceReport
	Duration            time.Duration
}

// Outcome summarizes the run as success, degraded or failed.
func (s *CrawlStats) Outcome() string {
	switch {
	case !s.Persisted && !s.DryRun:
		return "failed"
	case len(s.DegradedSources) > 0:
		return "degraded"
	default:
		return "success"
	}
}

// CrawlAllSources runs the pipeline once:
//  1. Load the previous snapshot (a load failure degrades to an empty one)
//  2. For each source in order: fetch, validate, diff, notify
//  3. Persist the new snapshot once, after every notification attempt
//
// Source failures never abort the run; they are reported in CrawlStats.
// The returned error is non-nil only when sources cannot be listed, the
// context ends before persisting, or the local store rejects the snapshot.
func (s *Service) CrawlAllSources(ctx context.Context) (stats *CrawlStats, err error) {
	startAll := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)
	stats = &CrawlStats{RunID: runID, DryRun: s.cfg.DryRun}

	ctx, span := tracing.StartSpan(ctx, "pipeline.run",
		attribute.String("run.id", runID),
		attribute.Bool("run.dry_run", s.cfg.DryRun))
	defer func() {
		stats.Duration = time.Since(startAll)
		span.SetAttributes(
			attribute.Int("run.changes", stats.Changes),
			attribute.Int("run.degraded", len(stats.DegradedSources)))
		tracing.EndSpan(span, err)
		if !s.cfg.DryRun {
			metrics.RecordRun(stats.Outcome(), stats.Duration, len(stats.DegradedSources), stats.Persisted)
		}
	}()

	srcs, err := s.SourceRepo.ListActive(ctx)
	if err != nil {
		return stats, fmt.Errorf("list active sources: %w", err)
	}
	if len(srcs) == 0 {
		return stats, ErrNoSources
	}
	stats.Sources = len(srcs)
	metrics.UpdateSourcesTotal(len(srcs))

	previous, loadErr := s.State.Load(ctx)
	if loadErr != nil {
		logger.Warn("previous snapshot unavailable, treating every post as new",
			slog.Any("error", loadErr))
	}
	if previous == nil {
		previous = entity.Snapshot{}
	}

	next := make(entity.Snapshot, len(srcs))
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			logger.Warn("run interrupted, snapshot not persisted",
				slog.String("next_source", src.ID),
				slog.Any("error", err))
			return stats, fmt.Errorf("run interrupted: %w", err)
		}

		report := s.processSingleSource(ctx, src, previous, next)
		stats.add(report)
	}

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("run interrupted: %w", err)
	}

	if s.cfg.DryRun {
		logger.Info("dry run, snapshot not persisted",
			slog.Int("sources", len(next)),
			slog.Int("records", next.RecordCount()))
	} else {
		if err := s.State.Save(ctx, next); err != nil {
			logger.Error("failed to persist snapshot", slog.Any("error", err))
			return stats, fmt.Errorf("persist snapshot: %w", err)
		}
		stats.Persisted = true
	}

	logger.Info("all sources crawl completed",
		slog.Int("sources", stats.Sources),
		slog.Int("posts", stats.Posts),
		slog.Int("dropped", stats.Dropped),
		slog.Int("changes", stats.Changes),
		slog.Int("notifications_sent", stats.NotificationsSent),
		slog.Int("notifications_failed", stats.NotificationsFailed),
		slog.Any("degraded_sources", stats.DegradedSources),
		slog.Bool("persisted", stats.Persisted),
		slog.Duration("duration", time.Since(startAll)),
	)
	return stats, nil
}

func (st *CrawlStats) add(r SourceReport) {
	st.Reports = append(st.Reports, r)
	st.Posts += r.Posts
	st.Dropped += r.Dropped
	st.Changes += r.Changes()
	st.NotificationsSent += r.Sent
	st.NotificationsFailed += r.Failed
	if r.Degraded {
		st.DegradedSources = append(st.DegradedSources, r.SourceID)
	}
}

// processSingleSource runs FETCH → VALIDATE → DIFF → NOTIFY for src and
// stores the records to persist for it in next.
func (s *Service) processSingleSource(ctx context.Context, src entity.Source, previous, next entity.Snapshot) (report SourceReport) {
	sourceStart := time.Now()
	logger := logging.FromContext(ctx).With(slog.String("source_id", src.ID))
	report.SourceID = src.ID

	ctx, span := tracing.StartSpan(ctx, "pipeline.source",
		attribute.String("source.id", src.ID),
		attribute.String("source.strategy", string(src.Strategy)))
	defer func() {
		report.Duration = time.Since(sourceStart)
		span.SetAttributes(
			attribute.Int("source.posts", report.Posts),
			attribute.Int("source.changes", report.Changes()))
		tracing.EndSpan(span, report.Err)
	}()

	raw, err := s.Fetcher.Fetch(ctx, src)
	if err != nil {
		report.Degraded = true
		report.Err = err
		metrics.RecordSourceFetchError(src.ID, classifyFetchError(err), time.Since(sourceStart))

		prev, hadPrev := previous[src.ID]
		if s.cfg.PreserveOnFetchFailure && hadPrev {
			next[src.ID] = prev
			report.Preserved = true
		} else {
			next[src.ID] = []entity.Record{}
		}
		logger.Warn("failed to fetch listing, source degraded",
			slog.String("url", src.URL),
			slog.Bool("previous_preserved", report.Preserved),
			slog.Any("error", err))
		return report
	}

	valid := entity.ValidateRecords(raw)
	records := entity.DedupeRecords(valid)
	report.Fetched = len(raw)
	report.Posts = len(records)
	report.Dropped = len(raw) - len(valid)
	metrics.RecordSourceFetch(src.ID, time.Since(sourceStart), report.Fetched, report.Dropped)
	if report.Dropped > 0 {
		logger.Debug("malformed records dropped", slog.Int("dropped", report.Dropped))
	}

	changes := detect.Diff(src, records, previous[src.ID], s.linker)
	for _, change := range changes {
		metrics.RecordChange(src.ID, string(change.Kind))
		switch change.Kind {
		case entity.ChangeNew:
			report.New++
		case entity.ChangeTitleChanged:
			report.TitleChanged++
		}

		sent, failed := s.notifyChange(ctx, change)
		report.Sent += sent
		report.Failed += failed
	}

	next[src.ID] = records

	logger.Info("source crawl completed",
		slog.Int("posts", report.Posts),
		slog.Int("new", report.New),
		slog.Int("title_changed", report.TitleChanged),
		slog.Int("notifications_sent", report.Sent),
		slog.Int("notifications_failed", report.Failed),
		slog.Duration("duration", time.Since(sourceStart)),
	)
	return report
}

// notifyChange hands change to the notifier and waits for every recipient.
func (s *Service) notifyChange(ctx context.Context, change entity.Change) (sent, failed int) {
	logger := logging.FromContext(ctx)

	if s.cfg.DryRun || s.Notifier == nil {
		logger.Info("change detected",
			slog.String("source_id", change.SourceID),
			slog.String("kind", string(change.Kind)),
			slog.String("record_id", change.Record.ID),
			slog.String("title", change.Record.Title),
			slog.String("link", change.Link),
			slog.Bool("dry_run", s.cfg.DryRun))
		return 0, 0
	}
	if len(s.cfg.Recipients) == 0 {
		logger.Warn("change detected but no recipients configured",
			slog.String("record_id", change.Record.ID))
		return 0, 0
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.notify",
		attribute.String("change.kind", string(change.Kind)),
		attribute.String("change.record_id", change.Record.ID),
		attribute.Int("recipients", len(s.cfg.Recipients)))
	results := s.Notifier.Notify(ctx, change, s.cfg.Recipients)
	sent, failed = notify.CountResults(results)
	span.SetAttributes(attribute.Int("notify.sent", sent), attribute.Int("notify.failed", failed))
	span.End()

	for _, r := range results {
		if r.Status == entity.DeliveryFailed {
			logger.Warn("notification delivery failed",
				slog.String("record_id", change.Record.ID),
				slog.String("channel", r.Recipient.Channel),
				slog.String("recipient", logging.MaskSecret(r.Recipient.ID)),
				slog.Any("error", r.Err))
		}
	}
	return sent, failed
}

// classifyFetchError maps a fetch failure onto a metrics label.
func classifyFetchError(err error) string {
	var httpErr *retry.HTTPError
	switch {
	case errors.Is(err, ErrListingNotLoaded):
		return "listing_not_loaded"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("http_%dxx", httpErr.StatusCode/100)
	default:
		return "fetch_failed"
	}
}
