// Package observability groups the worker's logging, metrics and tracing.
//
// Subpackages:
//   - logging: slog setup, run-id propagation and secret masking
//   - metrics: Prometheus collectors for pipeline runs and sources
//   - tracing: OpenTelemetry spans and the HTTP middleware
package observability
