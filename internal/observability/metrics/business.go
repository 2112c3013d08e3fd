package metrics

import (
	"time"
)

// RecordSourceFetch records one successful listing fetch.
func RecordSourceFetch(sourceID string, duration time.Duration, raw, dropped int) {
	SourceFetchDuration.WithLabelValues(sourceID).Observe(duration.Seconds())
	if raw > 0 {
		PostsFetchedTotal.WithLabelValues(sourceID).Add(float64(raw))
	}
	if dropped > 0 {
		PostsDroppedTotal.WithLabelValues(sourceID).Add(float64(dropped))
	}
}

// RecordSourceFetchError records a failed listing fetch.
// errorType is a short label such as "listing_not_loaded" or "http_5xx".
func RecordSourceFetchError(sourceID, errorType string, duration time.Duration) {
	SourceFetchDuration.WithLabelValues(sourceID).Observe(duration.Seconds())
	SourceFetchErrors.WithLabelValues(sourceID, errorType).Inc()
}

// RecordChange counts one detected change.
func RecordChange(sourceID, kind string) {
	ChangesDetectedTotal.WithLabelValues(sourceID, kind).Inc()
}

// RecordRun records the end of a pipeline run.
// outcome is success, degraded or failed; persisted marks a saved snapshot.
func RecordRun(outcome string, duration time.Duration, degraded int, persisted bool) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(duration.Seconds())
	DegradedSources.Set(float64(degraded))
	if persisted {
		LastSuccessTimestamp.SetToCurrentTime()
	}
}

// UpdateSourcesTotal sets the number of configured sources.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}
