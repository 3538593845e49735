package provider

import "context"

// Provider abstracts a chat-completion backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// Complete performs non-streaming inference.
	Complete(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// Stream performs streaming inference. The returned channel receives
	// ProviderEvent values and is closed by the provider when the stream
	// completes, errors, or ctx is cancelled. The channel is unbuffered:
	// the producer does not read the next upstream chunk until the
	// consumer has taken the current event.
	Stream(ctx context.Context, req *ProviderRequest) (<-chan ProviderEvent, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Send delivers ev on ch unless ctx is done first. It returns false when
// the context ended, in which case the producer must stop.
func Send(ctx context.Context, ch chan<- ProviderEvent, ev ProviderEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
