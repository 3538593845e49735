// Command server runs the coachrelay chat relay.
//
// Configuration is read from a YAML file (see -config) and environment
// variables. The most common settings:
//
//	OPENAI_API_KEY              - upstream credential (requests fail with 500 while unset)
//	OPENAI_BASE_URL             - OpenAI-compatible endpoint (optional)
//	PORT                        - listen port (default: 8000)
//	COACHRELAY_ENGINE_MODEL     - chat model (default: gpt-5-nano)
//	COACHRELAY_ENGINE_STREAM    - stream replies as SSE (default: true)
//	COACHRELAY_LOG_LEVEL        - TRACE, DEBUG, INFO, WARN or ERROR
//	COACHRELAY_DEBUG            - comma-separated debug categories, or "all"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/coachrelay/pkg/config"
	"github.com/rhuss/coachrelay/pkg/debug"
	"github.com/rhuss/coachrelay/pkg/engine"
	"github.com/rhuss/coachrelay/pkg/provider/openai"
	"github.com/rhuss/coachrelay/pkg/tokenizer"
	transporthttp "github.com/rhuss/coachrelay/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})
	debug.Log("config", "configuration loaded", "config", cfg.String())

	if !cfg.HasAPIKey() {
		slog.Warn("OPENAI_API_KEY not configured, chat requests will fail until it is set")
	}

	prov := openai.New(openai.Config{
		APIKey:       cfg.Engine.APIKey,
		BaseURL:      cfg.Engine.BaseURL,
		Model:        cfg.Engine.Model,
		Timeout:      cfg.Engine.RequestTimeout,
		IncludeUsage: cfg.Engine.IncludeUsage,
	})

	eng, err := engine.New(prov, engine.Config{
		SystemInstruction:    cfg.Engine.SystemInstruction,
		Model:                cfg.Engine.Model,
		Stream:               cfg.Engine.Stream,
		ConnectTimeout:       cfg.Engine.ConnectTimeout,
		IdleTimeout:          cfg.Engine.IdleTimeout,
		RequestTimeout:       cfg.Engine.RequestTimeout,
		RedactUpstreamErrors: cfg.Engine.RedactUpstreamErrors,
		Tokenizer:            tokenizer.New(),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	srv := transporthttp.NewServer(eng,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithAPIKeyConfigured(cfg.HasAPIKey()),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled),
		transporthttp.WithLogger(slog.Default()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("relay configured",
		"addr", cfg.Server.Addr(),
		"provider", prov.Name(),
		"model", prov.Model(),
		"stream", eng.Streaming(),
		"metrics", cfg.Observability.Metrics.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return prov.Close()
	})
	return g.Wait()
}
