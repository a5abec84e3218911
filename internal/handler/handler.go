package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gold-pulse/internal/domain"
	"gold-pulse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
)

// ChartService runs refresh cycles for the HTTP, websocket and bot surfaces.
type ChartService interface {
	Refresh(ctx context.Context, tf domain.Timeframe) (*service.RefreshResult, error)
	QuickStats(ctx context.Context) (*domain.QuickStats, error)
}

type SentimentService interface {
	Latest() domain.SentimentResult
	Refresh(ctx context.Context) domain.SentimentResult
}

type BreakerReporter interface {
	BreakerStates() map[string]string
}

type SeriesHistory interface {
	RecentSeries(ctx context.Context, symbol string, tf domain.Timeframe, limit int) (domain.TimeSeries, error)
}

type SentimentHistory interface {
	RecentSnapshots(ctx context.Context, limit int) ([]domain.SentimentResult, error)
}

// Options carries the optional collaborators. Nil history sources leave
// their routes unregistered.
type Options struct {
	DefaultTimeframe domain.TimeframeKey
	ChartInterval    time.Duration
	APIKey           string
	Breakers         BreakerReporter
	SeriesHistory    SeriesHistory
	SentimentHistory SentimentHistory
	Metrics          http.Handler
}

type Handler struct {
	tracer    trace.Tracer
	charts    ChartService
	sentiment SentimentService
	opts      Options
	defaultTF domain.Timeframe
	upgrader  websocket.Upgrader
}

func New(tracer trace.Tracer, charts ChartService, sentiment SentimentService, opts Options) *Handler {
	tf, err := domain.LookupTimeframe(string(opts.DefaultTimeframe))
	if err != nil {
		tf = domain.MustTimeframe(domain.DefaultTimeframe)
	}
	return &Handler{
		tracer:    tracer,
		charts:    charts,
		sentiment: sentiment,
		opts:      opts,
		defaultTF: tf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/timeframes", h.GetTimeframes)
	api.GET("/chart", h.GetChart)
	api.GET("/quick-stats", h.GetQuickStats)
	api.GET("/sentiment", h.GetSentiment)
	api.POST("/sentiment/refresh", APIKeyAuth(h.opts.APIKey), h.RefreshSentiment)
	if h.opts.SeriesHistory != nil {
		api.GET("/history", h.GetHistory)
	}
	if h.opts.SentimentHistory != nil {
		api.GET("/sentiment/history", h.GetSentimentHistory)
	}

	r.GET("/ws/chart", h.ChartStream)
	if h.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.opts.Metrics))
	}
}

// timeframeParam resolves ?timeframe=, falling back to the configured
// default when absent.
func (h *Handler) timeframeParam(c *gin.Context) (domain.Timeframe, bool) {
	raw := c.Query("timeframe")
	if raw == "" {
		return h.defaultTF, true
	}
	tf, err := domain.LookupTimeframe(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                err.Error(),
			"supported_timeframes": domain.TimeframeKeys(),
		})
		return domain.Timeframe{}, false
	}
	return tf, true
}

// errorStatus maps pipeline failures to HTTP statuses. NoData is the one
// failure a client should retry once sources recover.
func errorStatus(err error) (status int, retryable bool) {
	switch {
	case errors.Is(err, domain.ErrNoData):
		return http.StatusServiceUnavailable, true
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, true
	case errors.Is(err, context.Canceled):
		return 499, false
	default:
		return http.StatusBadGateway, false
	}
}

func writeError(c *gin.Context, err error) {
	status, retryable := errorStatus(err)
	body := gin.H{"error": err.Error(), "retryable": retryable}
	if kind := domain.KindOf(err); kind != "" {
		body["kind"] = kind
	}
	c.JSON(status, body)
}
