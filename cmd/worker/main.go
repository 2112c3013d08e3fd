package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconfig "post-alert/internal/config"
	"post-alert/internal/infra/scraper"
	workerPkg "post-alert/internal/infra/worker"
	"post-alert/internal/observability/logging"
	fetchUC "post-alert/internal/usecase/fetch"
	"post-alert/internal/usecase/notify"
)

// Exit codes of the worker process.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

type options struct {
	once   bool
	dryRun bool
}

func main() {
	var opts options
	flag.BoolVar(&opts.once, "once", false, "run the pipeline once and exit, ignoring CRON_SCHEDULE")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "detect and log changes without notifying or saving state")
	flag.Parse()

	logger := logging.NewFromEnv()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, logger, opts)
	stop()
	os.Exit(code)
}

// run wires the worker and returns the process exit code.
func run(ctx context.Context, logger *slog.Logger, opts options) int {
	workerMetrics := workerPkg.NewWorkerMetrics(nil)
	cfg := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if opts.once {
		cfg.CronSchedule = ""
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid worker configuration", slog.Any("error", err))
		return exitFailure
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Int("notify_max_concurrent", cfg.NotifyMaxConcurrent),
		slog.Duration("crawl_timeout", cfg.CrawlTimeout),
		slog.String("state_backend", cfg.StateBackend),
		slog.String("renderer", cfg.FetchRenderer),
		slog.Bool("dry_run", opts.dryRun))

	appCfg, err := appconfig.LoadFromEnv()
	if err != nil {
		logger.Error("failed to load application config", slog.Any("error", err))
		return exitFailure
	}
	recipients, err := appCfg.ParsedRecipients()
	if err != nil {
		logger.Error("invalid recipients", slog.Any("error", err))
		return exitFailure
	}
	if len(recipients) == 0 {
		logger.Warn("no recipients configured, changes will only be logged")
	}

	channels, err := buildChannels(logger, recipients)
	if err != nil {
		logger.Error("failed to initialize notification channels", slog.Any("error", err))
		return exitFailure
	}
	notifyService := notify.NewService(channels, cfg.NotifyMaxConcurrent)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notifyService.Shutdown(shutdownCtx); err != nil {
			logger.Error("notification service shutdown error", slog.Any("error", err))
		}
	}()

	fetcher, err := scraper.NewPageFetcherFromConfig(scraper.FactoryConfig{
		Renderer:         cfg.FetchRenderer,
		BrowserRemoteURL: cfg.BrowserRemoteURL,
		WaitTimeout:      cfg.FetchWaitTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize page fetcher", slog.Any("error", err))
		return exitFailure
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Error("failed to close page fetcher", slog.Any("error", err))
		}
	}()

	stateStore, closeState, err := buildStateStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to initialize state store", slog.Any("error", err))
		return exitFailure
	}
	defer closeState()

	svc := fetchUC.NewService(
		appconfig.NewSourceList(appCfg.Sources),
		fetcher,
		stateStore,
		notifyService,
		fetchUC.Config{
			Recipients:             recipients,
			PreserveOnFetchFailure: cfg.PreserveOnFetchFailure,
			DryRun:                 opts.dryRun,
			PermalinkBase:          appCfg.PermalinkBase,
		},
	)

	serverCtx, cancelServers := context.WithCancel(ctx)
	defer cancelServers()
	startMetricsServer(serverCtx, logger, cfg.MetricsPort, notifyService)
	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(serverCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	if cfg.RunOnce() {
		healthServer.SetReady(true)
		return exitCode(runJob(ctx, logger, svc, cfg, workerMetrics, healthServer, workerPkg.TriggerOnce))
	}

	job := func(ctx context.Context) error {
		return runJob(ctx, logger, svc, cfg, workerMetrics, healthServer, workerPkg.TriggerCron)
	}
	return exitCode(runScheduler(ctx, logger, cfg, workerMetrics, healthServer, job))
}

// crawler is the part of the pipeline service runJob drives.
type crawler interface {
	CrawlAllSources(ctx context.Context) (*fetchUC.CrawlStats, error)
}

// runJob executes one pipeline run bounded by cfg.CrawlTimeout and records
// its outcome.
func runJob(
	ctx context.Context,
	logger *slog.Logger,
	svc crawler,
	cfg *workerPkg.WorkerConfig,
	metrics *workerPkg.WorkerMetrics,
	healthServer *workerPkg.HealthServer,
	trigger string,
) error {
	start := time.Now()
	logger.Info("pipeline run started", slog.String("trigger", trigger))

	runCtx, cancel := context.WithTimeout(ctx, cfg.CrawlTimeout)
	defer cancel()

	stats, err := svc.CrawlAllSources(runCtx)
	outcome := "failed"
	if err == nil && stats != nil {
		outcome = stats.Outcome()
	}
	metrics.RecordJob(trigger, outcome, time.Since(start))
	healthServer.RecordRun(outcome, time.Now())

	if err != nil {
		logger.Error("pipeline run failed",
			slog.String("trigger", trigger),
			slog.String("error", logging.SanitizeError(err)),
			slog.Duration("duration", time.Since(start)))
		return err
	}
	logger.Info("pipeline run completed",
		slog.String("trigger", trigger),
		slog.String("outcome", outcome),
		slog.String("run_id", stats.RunID),
		slog.Int("sources", stats.Sources),
		slog.Int("posts", stats.Posts),
		slog.Int("changes", stats.Changes),
		slog.Int("notifications_sent", stats.NotificationsSent),
		slog.Int("notifications_failed", stats.NotificationsFailed),
		slog.Any("degraded_sources", stats.DegradedSources),
		slog.Duration("duration", stats.Duration))
	return nil
}

// exitCode maps a run error to the process exit status. Degraded runs
// exit 0; anything that left the state unsaved exits non-zero.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}
