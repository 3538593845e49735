package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	expected := map[string]bool{
		"coachrelay_requests_total":               false,
		"coachrelay_request_duration_seconds":     false,
		"coachrelay_streaming_connections_active": false,
		"coachrelay_stream_events_total":          false,
		"coachrelay_provider_requests_total":      false,
		"coachrelay_provider_latency_seconds":     false,
		"coachrelay_time_to_first_chunk_seconds":  false,
		"coachrelay_provider_tokens_total":        false,
	}

	// Vectors only appear after their first observation.
	RequestsTotal.WithLabelValues("GET", "2xx", "/").Inc()
	RequestDuration.WithLabelValues("GET", "/").Observe(0.1)
	StreamEventsTotal.WithLabelValues(EventChunk).Inc()
	ProviderRequestsTotal.WithLabelValues("openai", "test", "success").Inc()
	ProviderLatency.WithLabelValues("openai", "test").Observe(0.1)
	TimeToFirstChunk.WithLabelValues("openai", "test").Observe(0.1)
	RecordTokens("openai", "test", 10, 5)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

// TestRecordTokensSkipsZero verifies that zero counts leave counters untouched.
func TestRecordTokensSkipsZero(t *testing.T) {
	before := counterValue(t, ProviderTokensTotal, "openai", "zero-model", "output")
	RecordTokens("openai", "zero-model", 7, 0)
	if got := counterValue(t, ProviderTokensTotal, "openai", "zero-model", "input"); got < 7 {
		t.Errorf("input tokens = %f, want >= 7", got)
	}
	if after := counterValue(t, ProviderTokensTotal, "openai", "zero-model", "output"); after != before {
		t.Errorf("output tokens changed from %f to %f", before, after)
	}
}

// TestMiddlewareRecordsRequestCount verifies that the middleware increments
// the request counter for each served request.
func TestMiddlewareRecordsRequestCount(t *testing.T) {
	before := counterValue(t, RequestsTotal, "GET", "2xx", "/")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	after := counterValue(t, RequestsTotal, "GET", "2xx", "/")
	if after-before != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareRecordsDuration verifies that the middleware records
// a request duration observation.
func TestMiddlewareRecordsDuration(t *testing.T) {
	before := histogramCount(t, RequestDuration, "POST", "/api/chat")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	after := histogramCount(t, RequestDuration, "POST", "/api/chat")
	if after-before != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", after-before)
	}
}

// TestMiddlewareUnknownRouteLabel verifies that arbitrary paths collapse
// into a single label value.
func TestMiddlewareUnknownRouteLabel(t *testing.T) {
	before := counterValue(t, RequestsTotal, "GET", "4xx", "other")

	handler := MetricsMiddleware(http.NotFoundHandler())
	req := httptest.NewRequest("GET", "/wp-admin/setup.php", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	after := counterValue(t, RequestsTotal, "GET", "4xx", "other")
	if after-before != 1 {
		t.Errorf("expected other/4xx count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareCapturesStatusCode verifies that non-200 status codes are
// captured correctly in the status label.
func TestMiddlewareCapturesStatusCode(t *testing.T) {
	before := counterValue(t, RequestsTotal, "POST", "4xx", "/api/chat")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	after := counterValue(t, RequestsTotal, "POST", "4xx", "/api/chat")
	if after-before != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", after-before)
	}
}

// TestStatusWriterFlush verifies that the statusWriter Flush method
// delegates to the underlying writer when it implements http.Flusher.
func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.Flush()

	if !rec.Flushed {
		t.Error("expected underlying writer to be flushed")
	}
}

// TestHandlerExposesMetrics verifies the exposition endpoint.
func TestHandlerExposesMetrics(t *testing.T) {
	StreamEventsTotal.WithLabelValues(EventDone).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "coachrelay_stream_events_total") {
		t.Error("expected coachrelay_stream_events_total in exposition output")
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
