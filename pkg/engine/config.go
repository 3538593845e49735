package engine

import (
	"time"

	"github.com/rhuss/coachrelay/pkg/tokenizer"
)

// DefaultSystemInstruction fixes the assistant persona when the deployment
// does not configure one.
const DefaultSystemInstruction = "You are a supportive mental coach."

// Default timeouts for upstream calls.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultIdleTimeout    = 30 * time.Second
	DefaultRequestTimeout = 120 * time.Second
)

// redactedDetails replaces upstream error details when redaction is on.
const redactedDetails = "upstream request failed"

// Config holds configuration for the completion relay.
type Config struct {
	// SystemInstruction is sent as the first message of every upstream
	// conversation. Empty means DefaultSystemInstruction.
	SystemInstruction string

	// Model is the upstream model. Empty lets the provider choose.
	Model string

	// Stream selects SSE streaming (true) or a single JSON reply (false).
	Stream bool

	// ConnectTimeout bounds the wait for the first upstream event.
	ConnectTimeout time.Duration

	// IdleTimeout bounds the gap between consecutive upstream events.
	IdleTimeout time.Duration

	// RequestTimeout bounds a complete non-streaming call.
	RequestTimeout time.Duration

	// RedactUpstreamErrors hides provider error details from clients.
	// Full errors are still logged.
	RedactUpstreamErrors bool

	// Tokenizer estimates token usage when the provider reports none.
	// Nil disables estimation.
	Tokenizer tokenizer.Counter
}

func (c Config) systemInstruction() string {
	if c.SystemInstruction == "" {
		return DefaultSystemInstruction
	}
	return c.SystemInstruction
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}

func (c Config) idleTimeout() time.Duration {
	if c.IdleTimeout <= 0 {
		return DefaultIdleTimeout
	}
	return c.IdleTimeout
}

func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout
}
