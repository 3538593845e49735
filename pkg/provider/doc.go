// Package provider defines the interface for chat-completion backends.
// Each adapter handles its own backend protocol internally and exposes
// the same two calls to the engine: a blocking Complete and a Stream that
// delivers typed ProviderEvent values over a channel.
package provider
