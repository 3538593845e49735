package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhuss/coachrelay/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// request. An ID already in the context (set by the HTTP adapter from the
// X-Request-ID header) is kept; otherwise a random UUID is generated.
func RequestID() Middleware {
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.Chat(ctx, req, w)
		})
	}
}

// NewRequestID returns a new random request ID.
func NewRequestID() string {
	return uuid.NewString()
}
