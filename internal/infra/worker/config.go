package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"post-alert/internal/pkg/config"
)

// State backends accepted by STATE_BACKEND.
const (
	StateBackendFile   = "file"
	StateBackendSQLite = "sqlite"
)

// Fetch renderers accepted by FETCH_RENDERER.
const (
	RendererBrowser = "browser"
	RendererHTTP    = "http"
)

// WorkerConfig holds the operational settings of the worker process.
// Sources and recipients live in the application config file, not here.
type WorkerConfig struct {
	// CronSchedule is a five-field cron expression. Empty runs the pipeline
	// once and exits.
	// Default: "" (run once)
	CronSchedule string

	// Timezone is the IANA zone the schedule is evaluated in.
	// Default: "Asia/Seoul"
	Timezone string

	// NotifyMaxConcurrent bounds concurrent deliveries of one change.
	// Range: 1-50, default 10
	NotifyMaxConcurrent int

	// CrawlTimeout bounds one whole run.
	// Range: 1m-4h, default 30m
	CrawlTimeout time.Duration

	// FetchWaitTimeout bounds the wait for a listing to render.
	// Range: 1s-2m, default 10s
	FetchWaitTimeout time.Duration

	// HealthPort serves /health and /health/ready in cron mode.
	// Range: 1024-65535, default 9091
	HealthPort int

	// MetricsPort serves /metrics and /health/channels in cron mode.
	// Range: 1024-65535, default 9090
	MetricsPort int

	// StateBackend is "file" or "sqlite".
	StateBackend string

	// StatePath is the state file or database. An empty value selects
	// posts_data.json for the file backend and posts_data.db for sqlite.
	StatePath string

	// FetchRenderer is "browser" (headless Chrome) or "http" (static HTML).
	FetchRenderer string

	// BrowserRemoteURL points at an external Chrome DevTools endpoint. Empty launches a local browser.
	BrowserRemoteURL string

	// PreserveOnFetchFailure keeps a source's previous records when its fetch fails.
	// Default: true
	PreserveOnFetchFailure bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:           "",
		Timezone:               "Asia/Seoul",
		NotifyMaxConcurrent:    10,
		CrawlTimeout:           30 * time.Minute,
		FetchWaitTimeout:       10 * time.Second,
		HealthPort:             9091,
		MetricsPort:            9090,
		StateBackend:           StateBackendFile,
		FetchRenderer:          RendererBrowser,
		PreserveOnFetchFailure: true,
	}
}

// RunOnce reports whether no schedule is configured.
func (c *WorkerConfig) RunOnce() bool {
	return strings.TrimSpace(c.CronSchedule) == ""
}

// ResolvedStatePath returns StatePath or the backend's default file name.
func (c *WorkerConfig) ResolvedStatePath() string {
	if c.StatePath != "" {
		return c.StatePath
	}
	if c.StateBackend == StateBackendSQLite {
		return "posts_data.db"
	}
	return "posts_data.json"
}

// Validate checks every field and reports all failures together.
func (c *WorkerConfig) Validate() error {
	var errs []error
	check := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	check("cron schedule", config.ValidateCronSchedule(c.CronSchedule))
	check("timezone", config.ValidateTimezone(c.Timezone))
	check("notify max concurrent", config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 50))
	check("crawl timeout", config.ValidateDuration(c.CrawlTimeout, time.Minute, 4*time.Hour))
	check("fetch wait timeout", config.ValidateDuration(c.FetchWaitTimeout, time.Second, 2*time.Minute))
	check("health port", config.ValidateIntRange(c.HealthPort, 1024, 65535))
	check("metrics port", config.ValidateIntRange(c.MetricsPort, 1024, 65535))
	check("state backend", config.OneOf(StateBackendFile, StateBackendSQLite)(c.StateBackend))
	check("fetch renderer", config.OneOf(RendererBrowser, RendererHTTP)(c.FetchRenderer))
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port and metrics port must differ (both %d)", c.HealthPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// LoadConfigFromEnv loads the worker settings from the environment.
//
// Environment variables:
//   - CRON_SCHEDULE, WORKER_TIMEZONE
//   - NOTIFY_MAX_CONCURRENT, CRAWL_TIMEOUT, FETCH_WAIT_TIMEOUT
//   - WORKER_HEALTH_PORT, METRICS_PORT
//   - STATE_BACKEND, STATE_PATH
//   - FETCH_RENDERER, BROWSER_REMOTE_URL
//   - PRESERVE_ON_FETCH_FAILURE
//
// Invalid values fall back to their default with a warning and a
// fallback metric; the returned config is always usable.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	fallback := false
	track := func(applied bool) { fallback = fallback || applied }

	cron := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	track(config.Track(cm, logger, "cron_schedule", cron))
	cfg.CronSchedule = cron.Value

	tz := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	track(config.Track(cm, logger, "timezone", tz))
	cfg.Timezone = tz.Value

	notify := config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	track(config.Track(cm, logger, "notify_max_concurrent", notify))
	cfg.NotifyMaxConcurrent = notify.Value

	crawl := config.LoadEnvDuration("CRAWL_TIMEOUT", cfg.CrawlTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 4*time.Hour)
	})
	track(config.Track(cm, logger, "crawl_timeout", crawl))
	cfg.CrawlTimeout = crawl.Value

	wait := config.LoadEnvDuration("FETCH_WAIT_TIMEOUT", cfg.FetchWaitTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 2*time.Minute)
	})
	track(config.Track(cm, logger, "fetch_wait_timeout", wait))
	cfg.FetchWaitTimeout = wait.Value

	port := func(v int) error { return config.ValidateIntRange(v, 1024, 65535) }
	health := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, port)
	track(config.Track(cm, logger, "health_port", health))
	cfg.HealthPort = health.Value

	metricsPort := config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, port)
	track(config.Track(cm, logger, "metrics_port", metricsPort))
	cfg.MetricsPort = metricsPort.Value

	backend := config.LoadEnvWithFallback("STATE_BACKEND", cfg.StateBackend, config.OneOf(StateBackendFile, StateBackendSQLite))
	track(config.Track(cm, logger, "state_backend", backend))
	cfg.StateBackend = backend.Value
	cfg.StatePath = config.LoadEnvString("STATE_PATH", "")

	renderer := config.LoadEnvWithFallback("FETCH_RENDERER", cfg.FetchRenderer, config.OneOf(RendererBrowser, RendererHTTP))
	track(config.Track(cm, logger, "fetch_renderer", renderer))
	cfg.FetchRenderer = renderer.Value
	cfg.BrowserRemoteURL = config.LoadEnvString("BROWSER_REMOTE_URL", "")

	preserve := config.LoadEnvBool("PRESERVE_ON_FETCH_FAILURE", cfg.PreserveOnFetchFailure)
	track(config.Track(cm, logger, "preserve_on_fetch_failure", preserve))
	cfg.PreserveOnFetchFailure = preserve.Value

	if cm != nil {
		cm.SetFallbackActive(fallback)
		cm.RecordLoadTimestamp()
	}
	return &cfg
}
