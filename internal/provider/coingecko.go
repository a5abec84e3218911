package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gold-pulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider is the primary source. PAX Gold trades around the clock
// so its market_chart has no session gaps.
type CoinGeckoProvider struct {
	fetcher *HTTPFetcher
	baseURL string
	tracer  trace.Tracer
	asset   domain.Asset
}

// NewCoinGeckoProvider rate limits to 8 requests per minute (one token every
// 7.5 seconds), which keeps the free tier happy.
func NewCoinGeckoProvider(tracer trace.Tracer, baseURL string, timeout time.Duration) *CoinGeckoProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = coingeckoBaseURL
	}
	return &CoinGeckoProvider{
		fetcher: NewHTTPFetcher(string(domain.SourceCoinGecko), timeout, NewRateLimiter(8, 7500*time.Millisecond)),
		baseURL: baseURL,
		tracer:  tracer,
		asset:   domain.Gold,
	}
}

func (p *CoinGeckoProvider) Name() domain.DataSource { return domain.SourceCoinGecko }

// FetchSeries pulls market_chart for the timeframe window and buckets the
// raw samples to the timeframe interval.
func (p *CoinGeckoProvider) FetchSeries(ctx context.Context, tf domain.Timeframe) (domain.TimeSeries, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-series")
	defer span.End()
	span.SetAttributes(attribute.String("timeframe", string(tf.Key)))

	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d",
		p.baseURL, url.PathEscape(p.asset.CoinGeckoID), tf.CoinGeckoDays)

	// Response shape: {"prices": [[ts_ms, price], ...], "total_volumes": [[ts_ms, vol], ...]}
	var raw struct {
		Prices       [][]float64 `json:"prices"`
		TotalVolumes [][]float64 `json:"total_volumes"`
	}
	if err := p.fetcher.GetJSON(ctx, u, &raw); err != nil {
		span.RecordError(err)
		return domain.TimeSeries{}, err
	}
	if len(raw.Prices) == 0 {
		return domain.TimeSeries{}, domain.NewSourceError(domain.KindEmptyPayload, string(domain.SourceCoinGecko),
			fmt.Errorf("no prices for %s", p.asset.CoinGeckoID))
	}

	points := pointsFromMarketChart(raw.Prices, raw.TotalVolumes, tf.Interval.Duration())
	series := domain.NewTimeSeries(p.asset.Symbol, domain.SourceCoinGecko, tf.Interval, points)
	span.SetAttributes(attribute.Int("points", series.Len()))
	return series, nil
}
