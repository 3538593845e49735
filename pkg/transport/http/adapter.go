package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/rhuss/coachrelay/pkg/api"
	"github.com/rhuss/coachrelay/pkg/debug"
	"github.com/rhuss/coachrelay/pkg/observability"
	"github.com/rhuss/coachrelay/pkg/transport"
)

// Adapter serves the chat API over HTTP.
// It routes requests to the chat handler and serializes responses.
type Adapter struct {
	handler  transport.ChatHandler
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// MaxBodySize limits the request body of POST /api/chat.
	MaxBodySize int64

	// APIKeyConfigured reports whether an upstream credential is present.
	// Without one every chat request fails with an unconfigured error
	// before the handler is invoked.
	APIKeyConfigured bool

	// EnableMetrics mounts the Prometheus handler at /metrics and records
	// HTTP request metrics.
	EnableMetrics bool
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:   1 << 20, // 1 MiB
		EnableMetrics: true,
	}
}

// NewAdapter creates an HTTP adapter for the given ChatHandler.
// Middleware is applied to the handler in the given order.
func NewAdapter(handler transport.ChatHandler, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		handler:  handler,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("GET /{$}", a.handleStatus)
	a.mux.HandleFunc("POST /api/chat", a.handleChat)
	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok\n")
	})
	if cfg.EnableMetrics {
		a.mux.Handle("GET /metrics", observability.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// CORS handling and request ID propagation.
func (a *Adapter) Handler() http.Handler {
	var h http.Handler = a.mux
	if a.config.EnableMetrics {
		h = observability.MetricsMiddleware(h)
	}
	return corsMiddleware(httpRequestIDMiddleware(h))
}

// InFlight returns the registry of chat requests currently being served.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// corsMethods is the method list granted to preflight requests.
const corsMethods = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"

// corsMiddleware allows any origin. OPTIONS requests are answered directly
// with 204, echoing the requested headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")

		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		allowHeaders := r.Header.Get("Access-Control-Request-Headers")
		if allowHeaders == "" {
			allowHeaders = "*"
		}
		h.Set("Access-Control-Allow-Methods", corsMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Max-Age", "600")
		w.WriteHeader(http.StatusNoContent)
	})
}

// httpRequestIDMiddleware propagates the X-Request-ID header. A client
// supplied ID is kept, otherwise a new one is generated. The ID is placed
// in the request context and echoed in the response headers.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// handleStatus handles GET /.
func (a *Adapter) handleStatus(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, api.HealthStatus{Status: api.StatusOK})
}

// handleChat handles POST /api/chat.
func (a *Adapter) handleChat(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.ChatRequest
	if err := decodeJSONBody(r.Body, &req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return
	}

	if apiErr := api.ValidateChatRequest(&req); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	if !a.config.APIKeyConfigured {
		transport.WriteAPIError(w, api.NewUnconfiguredError())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Client request IDs may repeat, so the registry gets its own key.
	key := transport.NewRequestID()
	a.inflight.Register(key, cancel)
	defer a.inflight.Remove(key)

	rw := newSSEResponseWriter(w)
	if err := a.handler.Chat(ctx, &req, rw); err != nil {
		a.writeHandlerError(ctx, w, rw, err)
	}
}

// decodeJSONBody decodes exactly one JSON value from body. Anything but
// whitespace after the value is an error.
func decodeJSONBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// writeHandlerError writes an error returned by the handler. If streaming
// has already started, it sends an error event unless the stream already
// ended or the client is gone. Otherwise it writes a JSON error response.
func (a *Adapter) writeHandlerError(ctx context.Context, w http.ResponseWriter, rw *sseResponseWriter, err error) {
	if ctx.Err() != nil {
		debug.Log("http", "client gone, dropping error",
			"request_id", transport.RequestIDFromContext(ctx),
			"error", err.Error(),
		)
		return
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewServerError(err.Error())
	}

	if rw.hasStartedStreaming() {
		if !rw.isCompleted() {
			rw.WriteEvent(ctx, api.ErrorEvent(apiErr.Message))
		}
		return
	}
	if rw.isCompleted() {
		return
	}

	transport.WriteAPIError(w, apiErr)
}
