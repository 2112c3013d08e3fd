package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"post-alert/internal/observability/metrics"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantError bool
	}{
		{"TC-1: ok", "/health", http.StatusOK, false},
		{"TC-2: 4xx is not an error span", "/health/ready", http.StatusNotFound, false},
		{"TC-3: 5xx marks error", "/health/ready", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := installRecorder(t)
			handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			spans := rec.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, "GET "+tt.path, spans[0].Name())

			attrs := attrMap(spans[0].Attributes())
			assert.Equal(t, int64(tt.status), attrs["http.status_code"].AsInt64())
			assert.Equal(t, tt.path, attrs["http.path"].AsString())
			_, hasError := attrs["error"]
			assert.Equal(t, tt.wantError, hasError)

			assert.Equal(t, spans[0].SpanContext().TraceID().String(), rr.Header().Get("X-Trace-Id"))
		})
	}
}

func TestMiddleware_PropagatesIncomingTrace(t *testing.T) {
	rec := installRecorder(t)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("traceparent", parent)

	Middleware(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), req)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}

func TestMiddleware_RecordsHTTPMetrics(t *testing.T) {
	installRecorder(t)
	c := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health/channels", "200")
	before := testutil.ToFloat64(c)

	Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/channels", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestStartSpan_EndSpanRecordsError(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartSpan(context.Background(), "pipeline.source", attribute.String("source.id", "blog"))
	EndSpan(span, assert.AnError)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.source", spans[0].Name())
	assert.Equal(t, "blog", attrMap(spans[0].Attributes())["source.id"].AsString())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}
