package config

import (
	"os"
	"strconv"
	"strings"

	"gold-pulse/internal/domain"

	"github.com/rs/zerolog/log"
)

type Config struct {
	HTTPPort           int
	CORSAllowedOrigins []string
	APIKey             string

	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	RedisEnabled     bool

	CoinGeckoBaseURL  string
	YahooBaseURL      string
	SourceTimeoutSecs int

	NewsAPIURL      string
	NewsAPIKey      string
	NewsQuery       string
	NewsRSSFeeds    []string
	NewsTimeoutSecs int
	RedditSubs      []string

	RefreshIntervalSecs int
	DefaultTimeframe    domain.TimeframeKey

	BreakerThreshold    int
	BreakerCooldownSecs int

	SentimentTTLSecs      int
	SentimentCron         string
	SentimentLexiconPath  string
	GlobalTrendCron       string
	GlobalTrendMaxAgeSecs int

	LogLevel  string
	LogFormat string

	TracingEnabled   bool
	OTLPEndpoint     string
	TraceSampleRatio float64

	MCPTransport string
	MCPHTTPBind  string
	MCPHTTPPort  int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             strings.TrimSpace(os.Getenv("REDIS_URL")),
		CoinGeckoBaseURL:     strings.TrimSpace(os.Getenv("COINGECKO_BASE_URL")),
		YahooBaseURL:         strings.TrimSpace(os.Getenv("YAHOO_BASE_URL")),
		NewsAPIURL:           strings.TrimSpace(os.Getenv("NEWS_API_URL")),
		NewsAPIKey:           strings.TrimSpace(os.Getenv("NEWS_API_KEY")),
		NewsQuery:            strings.TrimSpace(os.Getenv("NEWS_QUERY")),
		NewsRSSFeeds:         splitList(os.Getenv("NEWS_RSS_FEEDS")),
		RedditSubs:           splitList(os.Getenv("REDDIT_SUBREDDITS")),
		SentimentLexiconPath: strings.TrimSpace(os.Getenv("SENTIMENT_LEXICON_PATH")),
		OTLPEndpoint:         strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		CORSAllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		APIKey:               strings.TrimSpace(os.Getenv("API_KEY")),
	}

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, series archive disabled")
	}

	cfg.RedisEnabled = !strings.EqualFold(strings.TrimSpace(os.Getenv("REDIS_ENABLED")), "false")
	if cfg.RedisEnabled && cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	if cfg.NewsAPIKey == "" && len(cfg.NewsRSSFeeds) == 0 && len(cfg.RedditSubs) == 0 {
		log.Warn().Msg("no NEWS_API_KEY, NEWS_RSS_FEEDS or REDDIT_SUBREDDITS set, sentiment will stay neutral")
	}

	cfg.HTTPPort = positiveInt("HTTP_PORT", 8080)
	cfg.SourceTimeoutSecs = positiveInt("SOURCE_TIMEOUT_SECS", 12)
	if cfg.SourceTimeoutSecs < 10 || cfg.SourceTimeoutSecs > 15 {
		log.Warn().Int("secs", cfg.SourceTimeoutSecs).Msg("SOURCE_TIMEOUT_SECS outside the 10-15s range")
	}
	cfg.NewsTimeoutSecs = positiveInt("NEWS_TIMEOUT_SECS", 10)
	cfg.RefreshIntervalSecs = positiveInt("REFRESH_INTERVAL_SECS", 60)
	cfg.BreakerThreshold = positiveInt("BREAKER_THRESHOLD", 3)
	cfg.BreakerCooldownSecs = positiveInt("BREAKER_COOLDOWN_SECS", 120)
	cfg.SentimentTTLSecs = positiveInt("SENTIMENT_TTL_SECS", 300)
	cfg.GlobalTrendMaxAgeSecs = positiveInt("GLOBAL_TREND_MAX_AGE_SECS", 900)
	cfg.MCPHTTPPort = positiveInt("MCP_HTTP_PORT", 8090)

	cfg.DefaultTimeframe = domain.DefaultTimeframe
	if v := strings.TrimSpace(os.Getenv("DEFAULT_TIMEFRAME")); v != "" {
		if tf, err := domain.LookupTimeframe(v); err == nil {
			cfg.DefaultTimeframe = tf.Key
		} else {
			log.Warn().Str("value", v).Msg("unsupported DEFAULT_TIMEFRAME, defaulting to 1D")
		}
	}

	cfg.SentimentCron = stringOr("SENTIMENT_CRON", "@every 5m")
	cfg.GlobalTrendCron = stringOr("GLOBAL_TREND_CRON", "@every 15m")

	cfg.LogLevel = strings.ToLower(stringOr("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(stringOr("LOG_FORMAT", "json"))
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		log.Warn().Str("value", cfg.LogFormat).Msg("unsupported LOG_FORMAT, defaulting to json")
		cfg.LogFormat = "json"
	}

	cfg.TracingEnabled = !strings.EqualFold(strings.TrimSpace(os.Getenv("TRACING_ENABLED")), "false")
	cfg.TraceSampleRatio = 1
	if v := strings.TrimSpace(os.Getenv("TRACE_SAMPLE_RATIO")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n <= 1 {
			cfg.TraceSampleRatio = n
		}
	}

	cfg.MCPTransport = strings.ToLower(stringOr("MCP_TRANSPORT", "stdio"))
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Warn().Str("value", cfg.MCPTransport).Msg("unsupported MCP_TRANSPORT, defaulting to stdio")
		cfg.MCPTransport = "stdio"
	}
	cfg.MCPHTTPBind = stringOr("MCP_HTTP_BIND", "127.0.0.1")

	return cfg
}

func positiveInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("invalid value, using default")
		return def
	}
	return n
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
