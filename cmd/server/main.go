package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gold-pulse/internal/app"
	"gold-pulse/internal/bot"
	"gold-pulse/internal/config"
	"gold-pulse/internal/handler"
	"gold-pulse/internal/job"
	"gold-pulse/internal/mcpserver"
	"gold-pulse/pkg/logger"
	"gold-pulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	tele "gopkg.in/telebot.v3"

	_ "gold-pulse/docs"
)

var version = "dev"

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initTracerFunc   = tracing.InitTracer
	buildAppFunc     = app.Build
	warmAppFunc      = func(a *app.App, ctx context.Context) { go a.Warm(ctx) }
	startTelegramBot = bot.Start
	startMCPFunc     = func(ctx context.Context, a *app.App) {
		srv := mcpserver.New(a.Pipeline, a.Sentiment, version)
		go func() {
			if err := mcpserver.Serve(ctx, srv, "http", a.Config.MCPHTTPBind, a.Config.MCPHTTPPort); err != nil {
				log.Error().Err(err).Msg("mcp http server stopped")
			}
		}()
	}
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	exitFunc               = os.Exit
)

// @title           Gold Pulse API
// @version         1.0
// @description     Gold price charts with short-term projections blended from long-term trend and news sentiment.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Warn().Err(err).Msg("invalid logger config, using defaults")
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server failed")
		exitFunc(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, tracing.Config{
		Enabled:        cfg.TracingEnabled,
		Endpoint:       cfg.OTLPEndpoint,
		ServiceVersion: version,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	a, err := buildAppFunc(ctx, cfg, tracer)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := job.NewScheduler(0)
	if err := a.RegisterJobs(scheduler); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()
	warmAppFunc(a, ctx)

	telegram, err := startTelegramBot(cfg.TelegramBotToken, bot.NewCommands(a.Pipeline, a.Sentiment, cfg.DefaultTimeframe))
	if err != nil {
		log.Warn().Err(err).Msg("telegram bot disabled")
	}
	defer stopTelegram(telegram)

	if cfg.MCPTransport == "http" {
		startMCPFunc(ctx, a)
	}

	h := handler.New(tracer, a.Pipeline, a.Sentiment, handler.Options{
		DefaultTimeframe: cfg.DefaultTimeframe,
		ChartInterval:    time.Duration(cfg.RefreshIntervalSecs) * time.Second,
		APIKey:           cfg.APIKey,
		Breakers:         a.Orchestrator,
		SeriesHistory:    seriesHistory(a),
		SentimentHistory: sentimentHistory(a),
		Metrics:          a.MetricsHandler(),
	})

	r := newRouterFunc()
	r.Use(gin.Recovery(), handler.RequestLogger(), handler.CORS(cfg.CORSAllowedOrigins))
	r.Use(otelgin.Middleware(tracing.DefaultServiceName))
	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	log.Info().Str("addr", srv.Addr).Msg("http server started")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil {
		return err
	}

	log.Info().Msg("server exiting")
	return nil
}

// The history interfaces must stay nil, not typed-nil, when the archive is
// disabled so the routes are left out.
func seriesHistory(a *app.App) handler.SeriesHistory {
	if a.SeriesRepo == nil {
		return nil
	}
	return a.SeriesRepo
}

func sentimentHistory(a *app.App) handler.SentimentHistory {
	if a.SentimentRepo == nil {
		return nil
	}
	return a.SentimentRepo
}

func stopTelegram(b *tele.Bot) {
	if b != nil {
		b.Stop()
	}
}
