// Package api defines the wire types of the coachrelay HTTP surface.
//
// The package covers the inbound chat request, the non-streaming reply,
// the health payload, the role-tagged messages sent upstream, the typed
// stream events framed as server-sent events, and the structured error
// returned to clients as {"detail": "..."}.
//
// The package has no external dependencies and performs no I/O.
//
// Core types:
//   - [ChatRequest]: client request carrying a single user message
//   - [ChatReply]: complete reply for non-streaming mode
//   - [Message]: role-tagged entry of the upstream message sequence
//   - [StreamEvent]: chunk, done or error event of a streaming reply
//   - [APIError]: structured error with type and message
package api
