package worker

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var workerEnvKeys = []string{
	"CRON_SCHEDULE", "WORKER_TIMEZONE", "NOTIFY_MAX_CONCURRENT", "CRAWL_TIMEOUT",
	"FETCH_WAIT_TIMEOUT", "WORKER_HEALTH_PORT", "METRICS_PORT", "STATE_BACKEND",
	"STATE_PATH", "FETCH_RENDERER", "BROWSER_REMOTE_URL", "PRESERVE_ON_FETCH_FAILURE",
}

// clearWorkerEnv blanks every variable LoadConfigFromEnv reads; an empty value means "unset" to the loaders.
func clearWorkerEnv(t *testing.T) {
	t.Helper()
	for _, k := range workerEnvKeys {
		t.Setenv(k, "")
	}
}

func newTestMetrics() *WorkerMetrics {
	return NewWorkerMetrics(prometheus.NewRegistry())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "", cfg.CronSchedule)
	assert.True(t, cfg.RunOnce())
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, 10, cfg.NotifyMaxConcurrent)
	assert.Equal(t, 30*time.Minute, cfg.CrawlTimeout)
	assert.Equal(t, 10*time.Second, cfg.FetchWaitTimeout)
	assert.Equal(t, 9091, cfg.HealthPort)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, StateBackendFile, cfg.StateBackend)
	assert.Equal(t, RendererBrowser, cfg.FetchRenderer)
	assert.True(t, cfg.PreserveOnFetchFailure)
	assert.NoError(t, cfg.Validate())
}

func TestWorkerConfig_ResolvedStatePath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "posts_data.json", cfg.ResolvedStatePath())

	cfg.StateBackend = StateBackendSQLite
	assert.Equal(t, "posts_data.db", cfg.ResolvedStatePath())

	cfg.StatePath = "/var/lib/post-alert/state.db"
	assert.Equal(t, "/var/lib/post-alert/state.db", cfg.ResolvedStatePath())
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr string
	}{
		{"valid cron", func(c *WorkerConfig) { c.CronSchedule = "*/30 * * * *" }, ""},
		{"invalid cron", func(c *WorkerConfig) { c.CronSchedule = "every hour" }, "cron schedule"},
		{"empty timezone", func(c *WorkerConfig) { c.Timezone = "" }, "timezone"},
		{"unknown timezone", func(c *WorkerConfig) { c.Timezone = "Invalid/Zone" }, "timezone"},
		{"notify zero", func(c *WorkerConfig) { c.NotifyMaxConcurrent = 0 }, "notify max concurrent"},
		{"notify 51", func(c *WorkerConfig) { c.NotifyMaxConcurrent = 51 }, "notify max concurrent"},
		{"notify boundary", func(c *WorkerConfig) { c.NotifyMaxConcurrent = 50 }, ""},
		{"crawl timeout zero", func(c *WorkerConfig) { c.CrawlTimeout = 0 }, "crawl timeout"},
		{"crawl timeout 5h", func(c *WorkerConfig) { c.CrawlTimeout = 5 * time.Hour }, "crawl timeout"},
		{"wait timeout 500ms", func(c *WorkerConfig) { c.FetchWaitTimeout = 500 * time.Millisecond }, "fetch wait timeout"},
		{"privileged health port", func(c *WorkerConfig) { c.HealthPort = 80 }, "health port"},
		{"metrics port too high", func(c *WorkerConfig) { c.MetricsPort = 70000 }, "metrics port"},
		{"same ports", func(c *WorkerConfig) { c.MetricsPort = c.HealthPort }, "must differ"},
		{"unknown backend", func(c *WorkerConfig) { c.StateBackend = "redis" }, "state backend"},
		{"unknown renderer", func(c *WorkerConfig) { c.FetchRenderer = "selenium" }, "fetch renderer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestWorkerConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "bad"
	cfg.NotifyMaxConcurrent = 0
	cfg.StateBackend = "s3"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron schedule")
	assert.Contains(t, err.Error(), "notify max concurrent")
	assert.Contains(t, err.Error(), "state backend")
}

func TestLoadConfigFromEnv_AllValid(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("CRON_SCHEDULE", "0 */2 * * *")
	t.Setenv("WORKER_TIMEZONE", "UTC")
	t.Setenv("NOTIFY_MAX_CONCURRENT", "4")
	t.Setenv("CRAWL_TIMEOUT", "10m")
	t.Setenv("FETCH_WAIT_TIMEOUT", "20s")
	t.Setenv("WORKER_HEALTH_PORT", "8081")
	t.Setenv("METRICS_PORT", "8082")
	t.Setenv("STATE_BACKEND", "sqlite")
	t.Setenv("STATE_PATH", "/data/state.db")
	t.Setenv("FETCH_RENDERER", "http")
	t.Setenv("BROWSER_REMOTE_URL", "ws://chrome:9222")
	t.Setenv("PRESERVE_ON_FETCH_FAILURE", "false")

	metrics := newTestMetrics()
	cfg := LoadConfigFromEnv(slog.Default(), metrics)

	assert.Equal(t, &WorkerConfig{
		CronSchedule:           "0 */2 * * *",
		Timezone:               "UTC",
		NotifyMaxConcurrent:    4,
		CrawlTimeout:           10 * time.Minute,
		FetchWaitTimeout:       20 * time.Second,
		HealthPort:             8081,
		MetricsPort:            8082,
		StateBackend:           StateBackendSQLite,
		StatePath:              "/data/state.db",
		FetchRenderer:          RendererHTTP,
		BrowserRemoteURL:       "ws://chrome:9222",
		PreserveOnFetchFailure: false,
	}, cfg)
	assert.False(t, cfg.RunOnce())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), float64(0))
}

func TestLoadConfigFromEnv_MissingUsesDefaults(t *testing.T) {
	clearWorkerEnv(t)

	cfg := LoadConfigFromEnv(slog.Default(), newTestMetrics())

	want := DefaultConfig()
	assert.Equal(t, &want, cfg)
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		key, value, field string
		check             func(t *testing.T, cfg *WorkerConfig)
	}{
		{"CRON_SCHEDULE", "invalid cron", "cron_schedule", func(t *testing.T, c *WorkerConfig) { assert.True(t, c.RunOnce()) }},
		{"WORKER_TIMEZONE", "Mars/Base", "timezone", func(t *testing.T, c *WorkerConfig) { assert.Equal(t, "Asia/Seoul", c.Timezone) }},
		{"NOTIFY_MAX_CONCURRENT", "1000", "notify_max_concurrent", func(t *testing.T, c *WorkerConfig) { assert.Equal(t, 10, c.NotifyMaxConcurrent) }},
		{"CRAWL_TIMEOUT", "30", "crawl_timeout", func(t *testing.T, c *WorkerConfig) { assert.Equal(t, 30*time.Minute, c.CrawlTimeout) }},
		{"FETCH_WAIT_TIMEOUT", "10m", "fetch_wait_timeout", func(t *testing.T, c *WorkerConfig) { assert.Equal(t, 10*time.Second, c.FetchWaitTimeout) }},
		{"WORKER_HEALTH_PORT", "80", "health_port", func(t *testing.T, c *WorkerConfig) { assert.Equal(t, 9091, c.HealthPort) }},
		{"METRICS_PORT", "abc", "metrics_port", func(t *testing.T, c *WorkerConfig) { assert.Equal(t, 9090, c.MetricsPort) }},
		{"STATE_BACKEND", "postgres", "state_backend", func(t *testing.T, c *WorkerConfig) { assert.Equal(t, StateBackendFile, c.StateBackend) }},
		{"FETCH_RENDERER", "chrome", "fetch_renderer", func(t *testing.T, c *WorkerConfig) { assert.Equal(t, RendererBrowser, c.FetchRenderer) }},
		{"PRESERVE_ON_FETCH_FAILURE", "sometimes", "preserve_on_fetch_failure", func(t *testing.T, c *WorkerConfig) { assert.True(t, c.PreserveOnFetchFailure) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearWorkerEnv(t)
			t.Setenv(tt.key, tt.value)
			var logs bytes.Buffer
			metrics := newTestMetrics()

			cfg := LoadConfigFromEnv(slog.New(slog.NewJSONHandler(&logs, nil)), metrics)

			tt.check(t, cfg)
			assert.NoError(t, cfg.Validate())
			assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues(tt.field)))
			assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))
			assert.Contains(t, logs.String(), "configuration fallback applied")
			assert.Contains(t, logs.String(), tt.key)
		})
	}
}

func TestLoadConfigFromEnv_NilMetrics(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("NOTIFY_MAX_CONCURRENT", "0")

	cfg := LoadConfigFromEnv(slog.Default(), nil)

	assert.Equal(t, 10, cfg.NotifyMaxConcurrent)
}
