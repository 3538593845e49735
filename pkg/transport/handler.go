package transport

import (
	"context"

	"github.com/rhuss/coachrelay/pkg/api"
)

// ChatHandler handles a single chat request. The implementation writes
// either a complete reply or a stream of events to the ResponseWriter and
// returns an error only for failures that have not been reported in-band.
type ChatHandler interface {
	Chat(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error
}

// ChatHandlerFunc is an adapter that allows using an ordinary function
// as a ChatHandler.
type ChatHandlerFunc func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error

// Chat calls f(ctx, req, w).
func (f ChatHandlerFunc) Chat(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter abstracts streaming and non-streaming output for the handler.
//
// BeginStream and WriteEvent are mutually exclusive with WriteReply on a
// single writer instance. WriteEvent after a terminal event (Done or Error)
// returns an error, so at most one terminal event reaches the client.
type ResponseWriter interface {
	// BeginStream commits a 200 text/event-stream response before any
	// event is available. Calling it again, or letting WriteEvent start
	// the stream implicitly, is harmless.
	BeginStream() error

	// WriteEvent sends a single streaming event and flushes it.
	WriteEvent(ctx context.Context, event api.StreamEvent) error

	// WriteReply sends a complete non-streaming reply.
	WriteReply(ctx context.Context, reply *api.ChatReply) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}
