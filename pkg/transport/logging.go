package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rhuss/coachrelay/pkg/api"
)

// Logging returns middleware that emits one structured log entry per chat
// request: request ID, message length, mode, chunk count, outcome and
// duration. The message text itself is never logged.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
			start := time.Now()
			rec := &recordingWriter{ResponseWriter: w}

			err := next.Chat(ctx, req, rec)

			mode, chunks, outcome := rec.summary()
			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.Int("message_len", len(req.Text())),
				slog.String("mode", mode),
				slog.Int("chunks", chunks),
				slog.String("outcome", outcome),
				slog.Duration("duration", time.Since(start)),
			}

			switch {
			case errors.Is(err, context.Canceled):
				logger.LogAttrs(ctx, slog.LevelInfo, "client disconnected", attrs...)
			case err != nil:
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
			case outcome == api.EventError.String():
				logger.LogAttrs(ctx, slog.LevelWarn, "stream failed", attrs...)
			default:
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			}

			return err
		})
	}
}

// recordingWriter observes what the handler writes.
type recordingWriter struct {
	ResponseWriter

	mu       sync.Mutex
	streamed bool
	replied  bool
	chunks   int
	terminal string
}

func (r *recordingWriter) BeginStream() error {
	r.mu.Lock()
	r.streamed = true
	r.mu.Unlock()
	return r.ResponseWriter.BeginStream()
}

func (r *recordingWriter) WriteEvent(ctx context.Context, event api.StreamEvent) error {
	err := r.ResponseWriter.WriteEvent(ctx, event)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streamed = true
	if event.IsTerminal() {
		r.terminal = event.Type.String()
	} else {
		r.chunks++
	}
	return nil
}

func (r *recordingWriter) WriteReply(ctx context.Context, reply *api.ChatReply) error {
	err := r.ResponseWriter.WriteReply(ctx, reply)
	if err == nil {
		r.mu.Lock()
		r.replied = true
		r.mu.Unlock()
	}
	return err
}

func (r *recordingWriter) summary() (mode string, chunks int, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.streamed:
		mode = "stream"
		outcome = r.terminal
		if outcome == "" {
			outcome = "aborted"
		}
	case r.replied:
		mode, outcome = "json", "reply"
	default:
		mode, outcome = "none", "none"
	}
	return mode, r.chunks, outcome
}
