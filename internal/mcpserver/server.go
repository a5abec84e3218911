package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"gold-pulse/internal/domain"
	"gold-pulse/internal/service"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type Forecaster interface {
	Refresh(ctx context.Context, tf domain.Timeframe) (*service.RefreshResult, error)
	QuickStats(ctx context.Context) (*domain.QuickStats, error)
}

type SentimentReader interface {
	Latest() domain.SentimentResult
}

type ForecastInput struct {
	Timeframe string `json:"timeframe,omitempty" jsonschema:"chart timeframe: 1D, 1W, 1M or 3M; defaults to 1D"`
}

type ProjectionPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

type ForecastOutput struct {
	Timeframe        string            `json:"timeframe"`
	Source           string            `json:"source"`
	LastClose        float64           `json:"last_close"`
	Available        bool              `json:"available"`
	Trend            string            `json:"trend"`
	Confidence       float64           `json:"confidence"`
	Slope            float64           `json:"slope"`
	SentimentSummary string            `json:"sentiment_summary"`
	Projection       []ProjectionPoint `json:"projection"`
}

type QuickStatsInput struct{}

type QuickStatsOutput struct {
	CurrentPrice     float64 `json:"current_price"`
	Change24h        float64 `json:"change_24h"`
	ChangePercent24h float64 `json:"change_percent_24h"`
	WeeklyHigh       float64 `json:"weekly_high"`
	WeeklyLow        float64 `json:"weekly_low"`
	Trend            string  `json:"trend"`
}

type SentimentInput struct{}

type SentimentOutput struct {
	Score             float64  `json:"score"`
	AdjustmentPercent float64  `json:"adjustment_percent"`
	Confidence        float64  `json:"confidence"`
	Category          string   `json:"category"`
	Summary           string   `json:"summary"`
	TriggerWords      []string `json:"trigger_words"`
	Headlines         int      `json:"headlines"`
	AsOf              string   `json:"as_of"`
}

type tools struct {
	charts    Forecaster
	sentiment SentimentReader
}

// New builds the read-only gold forecast tool server.
func New(charts Forecaster, sentiment SentimentReader, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "gold-pulse", Version: version}, nil)
	t := &tools{charts: charts, sentiment: sentiment}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "gold_forecast",
		Description: "Short-term gold price projection for a chart timeframe, blended with the long-term trend and news sentiment.",
	}, t.forecast)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "gold_quick_stats",
		Description: "Current gold price, 24h change and weekly range.",
	}, t.quickStats)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "gold_news_sentiment",
		Description: "Latest headline sentiment score for gold with its trigger keywords.",
	}, t.newsSentiment)
	return server
}

func (t *tools) forecast(ctx context.Context, _ *mcp.CallToolRequest, in ForecastInput) (*mcp.CallToolResult, ForecastOutput, error) {
	tf := domain.MustTimeframe(domain.DefaultTimeframe)
	if in.Timeframe != "" {
		var err error
		if tf, err = domain.LookupTimeframe(in.Timeframe); err != nil {
			return nil, ForecastOutput{}, err
		}
	}

	res, err := t.charts.Refresh(ctx, tf)
	if err != nil {
		return nil, ForecastOutput{}, fmt.Errorf("forecast %s: %w", tf.Key, err)
	}

	out := ForecastOutput{
		Timeframe:  string(tf.Key),
		Source:     string(res.Series.Source),
		Projection: []ProjectionPoint{},
	}
	if last, ok := res.Series.Last(); ok {
		out.LastClose = last.Close
	}
	if p := res.Prediction; p != nil {
		out.Available = true
		out.Trend = string(p.Trend)
		out.Confidence = p.Confidence
		out.Slope = p.Slope
		out.SentimentSummary = p.SentimentSummary
		for _, pt := range p.Points {
			out.Projection = append(out.Projection, ProjectionPoint{
				Time:  pt.Timestamp.UTC().Format(time.RFC3339),
				Value: pt.Value,
			})
		}
	}
	return nil, out, nil
}

func (t *tools) quickStats(ctx context.Context, _ *mcp.CallToolRequest, _ QuickStatsInput) (*mcp.CallToolResult, QuickStatsOutput, error) {
	stats, err := t.charts.QuickStats(ctx)
	if err != nil {
		return nil, QuickStatsOutput{}, err
	}
	if stats == nil {
		return nil, QuickStatsOutput{}, domain.ErrNoData
	}
	return nil, QuickStatsOutput{
		CurrentPrice:     stats.CurrentPrice,
		Change24h:        stats.Change24h,
		ChangePercent24h: stats.ChangePercent24h,
		WeeklyHigh:       stats.WeeklyHigh,
		WeeklyLow:        stats.WeeklyLow,
		Trend:            string(stats.Trend),
	}, nil
}

func (t *tools) newsSentiment(_ context.Context, _ *mcp.CallToolRequest, _ SentimentInput) (*mcp.CallToolResult, SentimentOutput, error) {
	s := t.sentiment.Latest()
	words := s.TriggerWords
	if words == nil {
		words = []string{}
	}
	out := SentimentOutput{
		Score:             s.Score,
		AdjustmentPercent: s.AdjustmentPercent,
		Confidence:        s.Confidence,
		Category:          string(s.Category),
		Summary:           s.Summary,
		TriggerWords:      words,
		Headlines:         len(s.Headlines),
	}
	if !s.Timestamp.IsZero() {
		out.AsOf = s.Timestamp.UTC().Format(time.RFC3339)
	}
	return nil, out, nil
}

// Serve runs the server over stdio, or over streamable HTTP on bind:port,
// until ctx is done.
func Serve(ctx context.Context, server *mcp.Server, transport, bind string, port int) error {
	switch transport {
	case "", "stdio":
		log.Info().Msg("mcp server listening on stdio")
		return server.Run(ctx, &mcp.StdioTransport{})
	case "http":
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
		srv := &http.Server{
			Addr:              net.JoinHostPort(bind, strconv.Itoa(port)),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", srv.Addr).Msg("mcp server listening on http")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported mcp transport %q", transport)
	}
}
