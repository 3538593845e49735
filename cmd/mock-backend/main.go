// Command mock-backend runs a deterministic OpenAI-compatible Chat
// Completions server for local development and end-to-end tests of the
// relay. Point the relay at it with OPENAI_BASE_URL=http://localhost:9090/v1.
//
// The reply depends on markers in the last user message:
//
//	[error]     - respond with HTTP 500 and an OpenAI error body
//	[midfail]   - stream two chunks, then an in-band error frame
//	[hang]      - stream one chunk, then stall until the client goes away
//	[echo]      - reply with the user message itself
//
// Configuration:
//
//	MOCK_PORT        - listen port (default: 9090)
//	MOCK_CHUNK_DELAY - delay between streamed chunks (default: 0s)
//	MOCK_API_KEY     - when set, requests must carry this bearer token
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
)

type mockConfig struct {
	Port       int           `env:"MOCK_PORT" envDefault:"9090"`
	ChunkDelay time.Duration `env:"MOCK_CHUNK_DELAY" envDefault:"0s"`
	APIKey     string        `env:"MOCK_API_KEY"`
}

func main() {
	var cfg mockConfig
	if err := env.Parse(&cfg); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newMux(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", cfg.Port, "chunk_delay", cfg.ChunkDelay, "auth", cfg.APIKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
