package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/coachrelay/pkg/api"
	"github.com/rhuss/coachrelay/pkg/debug"
	"github.com/rhuss/coachrelay/pkg/observability"
	"github.com/rhuss/coachrelay/pkg/provider"
	"github.com/rhuss/coachrelay/pkg/transport"
)

// Engine relays chat requests to a provider. It implements
// transport.ChatHandler.
type Engine struct {
	provider provider.Provider
	cfg      Config
}

// Ensure Engine implements transport.ChatHandler at compile time.
var _ transport.ChatHandler = (*Engine)(nil)

// New creates a new Engine. The provider must not be nil.
func New(p provider.Provider, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	return &Engine{
		provider: p,
		cfg:      cfg,
	}, nil
}

// Streaming reports whether the engine relays replies as SSE streams.
func (e *Engine) Streaming() bool {
	return e.cfg.Stream
}

// Chat handles one chat request. Upstream failures in streaming mode are
// written in-band as an Error event and Chat returns nil; in non-streaming
// mode they are returned as an *api.APIError of type upstream_error.
func (e *Engine) Chat(ctx context.Context, req *api.ChatRequest, w transport.ResponseWriter) error {
	provReq := &provider.ProviderRequest{
		Model:    e.cfg.Model,
		Messages: api.NewConversation(e.cfg.systemInstruction(), req.Text()),
		Stream:   e.cfg.Stream,
	}

	debug.Log("engine", "relaying chat request",
		"request_id", transport.RequestIDFromContext(ctx),
		"stream", provReq.Stream,
		"message_len", len(req.Text()),
	)

	if provReq.Stream {
		return e.relayStream(ctx, provReq, w)
	}
	return e.relayReply(ctx, provReq, w)
}

// relayReply performs one blocking provider call and writes a ChatReply.
func (e *Engine) relayReply(ctx context.Context, provReq *provider.ProviderRequest, w transport.ResponseWriter) error {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.requestTimeout())
	defer cancel()

	start := time.Now()
	resp, err := e.provider.Complete(callCtx, provReq)
	e.recordCall(err == nil, time.Since(start))

	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("request timed out after %s: %w", e.cfg.requestTimeout(), err)
		}
		return e.upstreamError(ctx, err)
	}

	if err := w.WriteReply(ctx, &api.ChatReply{Reply: resp.Content}); err != nil {
		return err
	}
	e.recordUsage(provReq, &resp.Usage, resp.Content)
	return nil
}

// relayStream commits the SSE response, starts the provider stream and
// forwards its events until exactly one terminal event has been written.
func (e *Engine) relayStream(ctx context.Context, provReq *provider.ProviderRequest, w transport.ResponseWriter) error {
	// Headers go out before the upstream call so that even a setup failure
	// is reported as an in-band Error event.
	if err := w.BeginStream(); err != nil {
		return err
	}

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	// Cancelling on return stops the producer whatever the exit path.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	eventCh, err := e.provider.Stream(ctx, provReq)
	if err != nil {
		e.recordCall(false, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return e.writeStreamError(ctx, w, err)
	}

	return e.consumeStream(ctx, eventCh, provReq, w, start)
}

// consumeStream reads provider events and writes stream events. The
// connect timeout applies until the first event arrives, the idle timeout
// between subsequent events.
func (e *Engine) consumeStream(ctx context.Context, eventCh <-chan provider.ProviderEvent, provReq *provider.ProviderRequest, w transport.ResponseWriter, start time.Time) error {
	timeout := e.cfg.connectTimeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		received bool
		chunks   int
		output   []byte
	)

	for {
		select {
		case <-ctx.Done():
			// The client went away; nobody is left to read an Error event.
			e.recordCall(false, time.Since(start))
			debug.Log("engine", "stream cancelled", "chunks", chunks)
			return ctx.Err()

		case <-timer.C:
			e.recordCall(false, time.Since(start))
			phase := "first response"
			if received {
				phase = "next chunk"
			}
			return e.writeStreamError(ctx, w, fmt.Errorf("timed out after %s waiting for %s", timeout, phase))

		case ev, ok := <-eventCh:
			if !ok {
				e.recordCall(false, time.Since(start))
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return e.writeStreamError(ctx, w, errors.New("stream closed without completion"))
			}

			if !received {
				received = true
				timeout = e.cfg.idleTimeout()
			}
			timer.Reset(timeout)

			switch ev.Type {
			case provider.ProviderEventTextDelta:
				if ev.Delta == "" {
					continue
				}
				if chunks == 0 {
					observability.TimeToFirstChunk.WithLabelValues(e.provider.Name(), e.modelLabel()).Observe(time.Since(start).Seconds())
				}
				if err := w.WriteEvent(ctx, api.ChunkEvent(ev.Delta)); err != nil {
					return err
				}
				observability.StreamEventsTotal.WithLabelValues(observability.EventChunk).Inc()
				debug.Trace("streaming", "chunk relayed", "text", ev.Delta)
				chunks++
				output = append(output, ev.Delta...)

			case provider.ProviderEventDone:
				e.recordCall(true, time.Since(start))
				if err := w.WriteEvent(ctx, api.DoneEvent()); err != nil {
					return err
				}
				observability.StreamEventsTotal.WithLabelValues(observability.EventDone).Inc()
				e.recordUsage(provReq, ev.Usage, string(output))
				return nil

			case provider.ProviderEventError:
				e.recordCall(false, time.Since(start))
				return e.writeStreamError(ctx, w, ev.Err)
			}
		}
	}
}

// writeStreamError writes the single Error event that ends a failed stream.
func (e *Engine) writeStreamError(ctx context.Context, w transport.ResponseWriter, err error) error {
	apiErr := e.upstreamError(ctx, err)
	if werr := w.WriteEvent(ctx, api.ErrorEvent(apiErr.Message)); werr != nil {
		return werr
	}
	observability.StreamEventsTotal.WithLabelValues(observability.EventError).Inc()
	return nil
}

// upstreamError logs err in full and converts it to the client-facing
// upstream_error, redacting details when configured.
func (e *Engine) upstreamError(ctx context.Context, err error) *api.APIError {
	if err == nil {
		err = errors.New("unknown error")
	}
	slog.Error("upstream call failed",
		"request_id", transport.RequestIDFromContext(ctx),
		"provider", e.provider.Name(),
		"error", err.Error(),
	)
	details := err.Error()
	if e.cfg.RedactUpstreamErrors {
		details = redactedDetails
	}
	return api.NewUpstreamError(details)
}

// modelLabel is the model name used as a metric label.
func (e *Engine) modelLabel() string {
	if e.cfg.Model == "" {
		return "default"
	}
	return e.cfg.Model
}

func (e *Engine) recordCall(success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	observability.ProviderRequestsTotal.WithLabelValues(e.provider.Name(), e.modelLabel(), status).Inc()
	observability.ProviderLatency.WithLabelValues(e.provider.Name(), e.modelLabel()).Observe(d.Seconds())
}

// recordUsage records token counts. Reported usage is recorded inline.
// Estimation runs in the background because the tokenizer may have to
// fetch its encoding first; it must never delay a response.
func (e *Engine) recordUsage(provReq *provider.ProviderRequest, usage *api.Usage, output string) {
	if usage != nil && usage.TotalTokens > 0 {
		observability.RecordTokens(e.provider.Name(), e.modelLabel(), usage.InputTokens, usage.OutputTokens)
		return
	}
	if e.cfg.Tokenizer == nil {
		return
	}
	counter, model, messages := e.cfg.Tokenizer, provReq.Model, provReq.Messages
	go func() {
		input := counter.CountMessages(messages, model)
		out := counter.CountText(output, model)
		observability.RecordTokens(e.provider.Name(), e.modelLabel(), input, out)
	}()
}
