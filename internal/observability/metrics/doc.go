// Package metrics holds the Prometheus metrics of the alert pipeline.
//
// Metrics are registered with the default registry through promauto and
// served on /metrics by the worker:
//   - pipeline_* describe whole runs (outcome, duration, degraded sources)
//   - source_* and posts_* break a run down per blog
//   - changes_detected_total counts NEW and TITLE_CHANGED changes
//   - http_* cover the worker's own health endpoints
//
// Example usage:
//
//	start := time.Now()
//	raw, err := fetcher.Fetch(ctx, src)
//	if err != nil {
//	    metrics.RecordSourceFetchError(src.ID, "fetch_failed", time.Since(start))
//	}
package metrics
