package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gold-pulse/internal/domain"
	"gold-pulse/internal/service"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

const commandTimeout = 20 * time.Second

type Forecaster interface {
	Refresh(ctx context.Context, tf domain.Timeframe) (*service.RefreshResult, error)
	QuickStats(ctx context.Context) (*domain.QuickStats, error)
}

type SentimentReader interface {
	Latest() domain.SentimentResult
}

// Commands renders the bot replies. It is independent of Telegram so the
// text can be tested without a bot token.
type Commands struct {
	charts    Forecaster
	sentiment SentimentReader
	defaultTF domain.Timeframe
}

func NewCommands(charts Forecaster, sentiment SentimentReader, defaultTF domain.TimeframeKey) *Commands {
	tf, err := domain.LookupTimeframe(string(defaultTF))
	if err != nil {
		tf = domain.MustTimeframe(domain.DefaultTimeframe)
	}
	return &Commands{charts: charts, sentiment: sentiment, defaultTF: tf}
}

// Start registers the commands and begins long polling. An empty token
// returns a nil bot.
func Start(token string, cmds *Commands) (*tele.Bot, error) {
	if token == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/gold", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(cmds.Gold(ctx))
	})
	b.Handle("/forecast", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(cmds.Forecast(ctx, c.Args()))
	})
	b.Handle("/sentiment", func(c tele.Context) error {
		return c.Send(cmds.Sentiment())
	})

	log.Info().Msg("telegram bot started")
	go b.Start()
	return b, nil
}

func (c *Commands) Gold(ctx context.Context) string {
	stats, err := c.charts.QuickStats(ctx)
	if err != nil {
		return "Gold price unavailable: " + reason(err)
	}
	if stats == nil {
		return "Gold price unavailable: not enough recent data"
	}
	return fmt.Sprintf(
		"Gold (XAU)\nPrice: $%.2f\n24h Change: %+.2f (%+.2f%%)\nWeek range: $%.2f - $%.2f\nTrend: %s",
		stats.CurrentPrice, stats.Change24h, stats.ChangePercent24h,
		stats.WeeklyLow, stats.WeeklyHigh, stats.Trend,
	)
}

func (c *Commands) Forecast(ctx context.Context, args []string) string {
	tf := c.defaultTF
	if len(args) > 0 {
		var err error
		if tf, err = domain.LookupTimeframe(args[0]); err != nil {
			return fmt.Sprintf("Usage: /forecast [timeframe]\nSupported: %s", strings.Join(domain.TimeframeKeys(), ", "))
		}
	}

	res, err := c.charts.Refresh(ctx, tf)
	if err != nil {
		return fmt.Sprintf("Forecast for %s unavailable: %s", tf.Key, reason(err))
	}
	if res.Prediction == nil || len(res.Prediction.Points) == 0 {
		return fmt.Sprintf("Not enough history for a %s forecast yet", tf.Key)
	}

	p := res.Prediction
	last := p.Points[len(p.Points)-1]
	var b strings.Builder
	fmt.Fprintf(&b, "Gold %s forecast (%s)\n", tf.Label, p.Trend)
	fmt.Fprintf(&b, "Now: $%.2f\n", p.Points[0].Value)
	fmt.Fprintf(&b, "Projected: $%.2f at %s\n", last.Value, last.Timestamp.UTC().Format("Jan 2 15:04 MST"))
	fmt.Fprintf(&b, "Confidence: %.0f%%", p.Confidence*100)
	if p.SentimentSummary != "" {
		fmt.Fprintf(&b, "\nNews: %s", p.SentimentSummary)
	}
	if res.Series.Source == domain.SourceCache {
		b.WriteString("\n(served from cache, live sources unavailable)")
	}
	return b.String()
}

func (c *Commands) Sentiment() string {
	s := c.sentiment.Latest()
	if s.Summary == "" {
		return "No headlines scored yet"
	}
	return fmt.Sprintf("%s\nScore: %+.2f (confidence %.0f%%)\nPrice adjustment: %+.2f%%",
		s.Summary, s.Score, s.Confidence*100, s.AdjustmentPercent)
}

func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoData):
		return "no live or cached data, try again shortly"
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "data sources timed out"
	default:
		return err.Error()
	}
}
