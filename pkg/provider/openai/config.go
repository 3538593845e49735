package openai

import "time"

// DefaultModel is used when the configuration leaves the model empty.
const DefaultModel = "gpt-5-nano"

// Config holds configuration for the OpenAI provider adapter.
type Config struct {
	// APIKey authenticates against the upstream API. May be empty at
	// construction time; the gateway rejects requests until one is set.
	APIKey string

	// BaseURL overrides the SDK default (https://api.openai.com/v1).
	BaseURL string

	// Model is the chat model requested upstream.
	Model string

	// Timeout bounds a single non-streaming HTTP request. Zero leaves the
	// lifetime to the caller's context. Streaming calls are never bounded
	// here because a stream can legitimately outlast any fixed timeout.
	Timeout time.Duration

	// IncludeUsage asks the backend to append token usage to streams.
	IncludeUsage bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:        DefaultModel,
		IncludeUsage: true,
	}
}
