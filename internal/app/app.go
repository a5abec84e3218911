package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gold-pulse/internal/cache"
	"gold-pulse/internal/config"
	"gold-pulse/internal/db"
	"gold-pulse/internal/job"
	"gold-pulse/internal/provider"
	"gold-pulse/internal/quotes"
	"gold-pulse/internal/repository"
	"gold-pulse/internal/sentiment"
	"gold-pulse/internal/service"
	"gold-pulse/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

var (
	connectRedis    = cache.Connect
	connectPostgres = db.Connect
	runMigrations   = func(ctx context.Context, pool *pgxpool.Pool) error {
		migrations, err := db.Migrations()
		if err != nil {
			return err
		}
		_, err = db.NewMigrator(pool, migrations).Up(ctx)
		return err
	}
)

// App is the assembled gold forecast pipeline shared by the HTTP server and
// the MCP entry point.
type App struct {
	Config   *config.Config
	Tracer   trace.Tracer
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder

	Orchestrator *quotes.Orchestrator
	Global       *service.GlobalTrend
	Pipeline     *service.Pipeline
	Sentiment    *sentiment.Engine

	SeriesRepo    *repository.SeriesRepository
	SentimentRepo *repository.SentimentRepository

	redis *redis.Client
	pool  *pgxpool.Pool
}

// Build wires providers, caches, archive and engines from cfg. Redis and
// Postgres are optional: a failed connection is logged and the component
// runs without it.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (*App, error) {
	a := &App{Config: cfg, Tracer: tracer, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	var seriesCache quotes.SeriesCache = quotes.NewMemoryCache()
	if cfg.RedisEnabled {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-process series cache only")
		} else {
			a.redis = client
			seriesCache = quotes.NewLayeredCache(seriesCache, quotes.NewRedisCache(client, quotes.DefaultRedisTTL))
		}
	}

	if cfg.DatabaseURL != "" {
		pool, err := connectPostgres(ctx, cfg.DatabaseURL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("postgres unavailable, archive disabled")
		case pool != nil:
			if err := runMigrations(ctx, pool); err != nil {
				pool.Close()
				a.closeRedis()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			a.pool = pool
			a.SeriesRepo = repository.NewSeriesRepository(pool, tracer)
			a.SentimentRepo = repository.NewSentimentRepository(pool, tracer)
		}
	}

	sourceTimeout := time.Duration(cfg.SourceTimeoutSecs) * time.Second
	primary := provider.NewCoinGeckoProvider(tracer, cfg.CoinGeckoBaseURL, sourceTimeout)
	secondary := provider.NewYahooProvider(tracer, cfg.YahooBaseURL, sourceTimeout)
	a.Orchestrator = quotes.NewOrchestrator(tracer, primary, secondary, seriesCache, quotes.Settings{
		SourceTimeout:    sourceTimeout,
		BreakerThreshold: uint32(cfg.BreakerThreshold),
		BreakerCooldown:  time.Duration(cfg.BreakerCooldownSecs) * time.Second,
	}).WithObserver(a.Metrics)

	lexicon, err := sentiment.LoadLexicon(cfg.SentimentLexiconPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Sentiment = sentiment.NewEngine(
		tracer,
		headlineSource(cfg, tracer),
		sentiment.NewAnalyzer(lexicon),
		sentiment.NewCache(time.Duration(cfg.SentimentTTLSecs)*time.Second),
	).WithObserver(a.Metrics)
	if a.SentimentRepo != nil {
		a.Sentiment.WithArchive(a.SentimentRepo)
	}

	a.Global = service.NewGlobalTrend(tracer, a.Orchestrator, time.Duration(cfg.GlobalTrendMaxAgeSecs)*time.Second)
	a.Pipeline = service.NewPipeline(tracer, a.Orchestrator, a.Global, a.Sentiment).WithObserver(a.Metrics)
	if a.SeriesRepo != nil {
		a.Pipeline.WithArchive(a.SeriesRepo)
	}
	return a, nil
}

// headlineSource merges the news search API, RSS feeds and subreddits,
// whichever are configured. It returns nil when none is, which leaves
// sentiment neutral.
func headlineSource(cfg *config.Config, tracer trace.Tracer) sentiment.HeadlineSource {
	timeout := time.Duration(cfg.NewsTimeoutSecs) * time.Second
	var sources []provider.HeadlineFetcher
	if cfg.NewsAPIKey != "" {
		sources = append(sources, provider.NewNewsProvider(tracer, cfg.NewsAPIURL, cfg.NewsAPIKey, cfg.NewsQuery, timeout))
	}
	if len(cfg.NewsRSSFeeds) > 0 {
		sources = append(sources, provider.NewRSSProvider(tracer, cfg.NewsRSSFeeds, timeout))
	}
	if len(cfg.RedditSubs) > 0 {
		sources = append(sources, provider.NewRedditProvider(tracer, cfg.RedditSubs, timeout))
	}
	if len(sources) == 0 {
		return nil
	}
	return provider.NewMultiHeadlineSource(sources...)
}

// RegisterJobs schedules the background sentiment and global trend
// refreshes.
func (a *App) RegisterJobs(s *job.Scheduler) error {
	if err := s.Register("sentiment", a.Config.SentimentCron, func(ctx context.Context) error {
		a.Sentiment.Refresh(ctx)
		return nil
	}); err != nil {
		return err
	}
	return s.Register("global-trend", a.Config.GlobalTrendCron, a.Pipeline.RefreshGlobalTrend)
}

// Warm primes sentiment and the global trend so the first chart cycle has
// both.
func (a *App) Warm(ctx context.Context) {
	a.Sentiment.Refresh(ctx)
	if err := a.Pipeline.RefreshGlobalTrend(ctx); err != nil {
		log.Warn().Err(err).Msg("initial global trend refresh failed")
	}
}

func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	a.closeRedis()
}

func (a *App) closeRedis() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis client")
		}
	}
}
