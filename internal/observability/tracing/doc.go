// Package tracing wires OpenTelemetry spans into the pipeline.
//
// A run produces one "pipeline.run" span with a child span per source and
// per notified change. The worker's HTTP endpoints are wrapped with
// Middleware. No exporter is installed by default; spans are recorded only
// when a TracerProvider is set with otel.SetTracerProvider.
//
//	ctx, span := tracing.StartSpan(ctx, "pipeline.source",
//	    attribute.String("source.id", src.ID))
//	defer func() { tracing.EndSpan(span, err) }()
package tracing
