// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the coachrelay gateway.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Stream event outcomes recorded in StreamEventsTotal.
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachrelay_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachrelay_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of SSE streams being relayed.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coachrelay_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// StreamEventsTotal counts SSE events written, by type.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachrelay_stream_events_total",
			Help: "Stream events written",
		},
		[]string{"type"},
	)

	// ProviderRequestsTotal counts upstream chat-completion calls.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachrelay_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records full upstream call duration in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachrelay_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// TimeToFirstChunk records the delay before the first streamed chunk.
	TimeToFirstChunk = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachrelay_time_to_first_chunk_seconds",
			Help:    "Time to first streamed chunk",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachrelay_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		StreamEventsTotal,
		ProviderRequestsTotal,
		ProviderLatency,
		TimeToFirstChunk,
		ProviderTokensTotal,
	)
}

// Handler returns the Prometheus exposition handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTokens adds input and output token counts for one upstream call.
func RecordTokens(provider, model string, input, output int) {
	if input > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(input))
	}
	if output > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(output))
	}
}
