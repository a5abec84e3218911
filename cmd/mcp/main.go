package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gold-pulse/internal/app"
	"gold-pulse/internal/config"
	"gold-pulse/internal/mcpserver"
	"gold-pulse/pkg/logger"
	"gold-pulse/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var version = "dev"

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initTracerFunc = tracing.InitTracer
	buildAppFunc   = app.Build
	serveFunc      = mcpserver.Serve
	exitFunc       = os.Exit
)

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	// stdout carries the protocol in stdio mode.
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr}); err != nil {
		log.Warn().Err(err).Msg("invalid logger config, using defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("mcp server failed")
		exitFunc(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	tp, tracer, err := initTracerFunc(ctx, tracing.Config{
		Enabled:        cfg.TracingEnabled,
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    tracing.DefaultServiceName + "-mcp",
		ServiceVersion: version,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	a, err := buildAppFunc(ctx, cfg, tracer)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.New(a.Pipeline, a.Sentiment, version)
	return serveFunc(ctx, server, cfg.MCPTransport, cfg.MCPHTTPBind, cfg.MCPHTTPPort)
}
