// Package openai implements the Provider interface on top of the official
// OpenAI Go SDK. Any OpenAI-compatible Chat Completions server can stand
// in by overriding the base URL.
package openai
