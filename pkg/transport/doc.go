// Package transport defines the handler interface and middleware chain for
// the coachrelay HTTP/SSE transport layer.
//
// The transport layer bridges browser clients and the completion relay. It
// decodes incoming chat requests into the types defined in pkg/api,
// dispatches them, and serializes results back to the client either as one
// JSON reply or as a stream of server-sent events.
//
// # Handler Interface
//
// ChatHandler is the contract between transport and engine. The
// ResponseWriter it receives abstracts streaming and non-streaming output,
// so the handler emits typed StreamEvent values or a ChatReply without
// knowing how they are framed on the wire.
//
// # Middleware
//
// The middleware chain wraps ChatHandler with cross-cutting concerns:
// panic recovery, request ID assignment (X-Request-ID), and structured
// logging via log/slog.
package transport
