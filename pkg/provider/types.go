package provider

import "github.com/rhuss/coachrelay/pkg/api"

// ProviderRequest is the backend-facing request. It contains only the
// information the provider needs, stripped of transport concerns.
type ProviderRequest struct {
	Model    string        `json:"model"`
	Messages []api.Message `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

// ProviderResponse is the backend's complete non-streaming response.
type ProviderResponse struct {
	// Content is the text of the first choice.
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Model        string    `json:"model"`
	Usage        api.Usage `json:"usage"`
}

// ProviderEventType classifies a streaming event from the backend.
type ProviderEventType int

const (
	ProviderEventTextDelta ProviderEventType = iota // Incremental text content
	ProviderEventDone                               // Stream finished
	ProviderEventError                              // Stream error
)

// ProviderEvent is a single streaming event from the backend. It carries
// either a text delta, a completion marker, or an error.
type ProviderEvent struct {
	// Type indicates what kind of event this is.
	Type ProviderEventType

	// Delta contains incremental text.
	Delta string

	// Usage is populated on the Done event when the backend reports it.
	Usage *api.Usage

	// Err is populated if the stream encountered an error.
	Err error
}
