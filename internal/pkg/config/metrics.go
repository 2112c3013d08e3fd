package config

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics exposes configuration fallbacks of one component as
// <component>_config_* series.
type ConfigMetrics struct {
	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec // labels: field
	FallbacksTotal        *prometheus.CounterVec // labels: field
	FallbackActive        prometheus.Gauge       // 1 while any field runs on its default
}

// NewConfigMetrics registers the metrics on reg, or on the default registry when reg is nil.
// Each component name may be registered once per registry.
func NewConfigMetrics(componentName string, reg prometheus.Registerer) *ConfigMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &ConfigMetrics{
		LoadTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: componentName + "_config_load_timestamp",
			Help: "Unix timestamp of the last " + componentName + " configuration load",
		}),
		ValidationErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: componentName + "_config_validation_errors_total",
			Help: "Total number of " + componentName + " configuration validation errors",
		}, []string{"field"}),
		FallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: componentName + "_config_fallbacks_total",
			Help: "Total number of " + componentName + " configuration values replaced by their default",
		}, []string{"field"}),
		FallbackActive: f.NewGauge(prometheus.GaugeOpts{
			Name: componentName + "_config_fallback_active",
			Help: "1 if any " + componentName + " configuration fallback is active, 0 otherwise",
		}),
	}
}

// RecordLoadTimestamp sets the load timestamp to now.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// SetFallbackActive flips the fallback gauge.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
		return
	}
	m.FallbackActive.Set(0)
}

// Track counts and logs a fallback of field. It reports whether one happened
// so callers can aggregate the FallbackActive state.
func Track[T any](m *ConfigMetrics, logger *slog.Logger, field string, r LoadResult[T]) bool {
	if !r.FallbackApplied {
		return false
	}
	if m != nil {
		m.ValidationErrorsTotal.WithLabelValues(field).Inc()
		m.FallbacksTotal.WithLabelValues(field).Inc()
	}
	if logger != nil {
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", r.Warning))
	}
	return true
}
