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

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider is the fallback source, reading COMEX gold futures from the
// public chart API.
type YahooProvider struct {
	fetcher *HTTPFetcher
	baseURL string
	tracer  trace.Tracer
	asset   domain.Asset
}

func NewYahooProvider(tracer trace.Tracer, baseURL string, timeout time.Duration) *YahooProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	f := NewHTTPFetcher(string(domain.SourceYahoo), timeout, nil)
	f.SetHeader("User-Agent", "Mozilla/5.0")
	return &YahooProvider{
		fetcher: f,
		baseURL: baseURL,
		tracer:  tracer,
		asset:   domain.Gold,
	}
}

func (p *YahooProvider) Name() domain.DataSource { return domain.SourceYahoo }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries reads the chart for the timeframe's range. Bars are resampled
// when Yahoo has no native bar of the timeframe interval.
func (p *YahooProvider) FetchSeries(ctx context.Context, tf domain.Timeframe) (domain.TimeSeries, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-series")
	defer span.End()
	span.SetAttributes(attribute.String("timeframe", string(tf.Key)))

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		p.baseURL, url.PathEscape(p.asset.YahooTicker), tf.YahooInterval, tf.YahooRange)

	var chart yahooChart
	if err := p.fetcher.GetJSON(ctx, u, &chart); err != nil {
		span.RecordError(err)
		return domain.TimeSeries{}, err
	}
	if chart.Chart.Error != nil {
		return domain.TimeSeries{}, domain.NewSourceError(domain.KindNetworkFailure, string(domain.SourceYahoo),
			fmt.Errorf("api error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description))
	}

	points, err := parseYahooChart(chart)
	if err != nil {
		return domain.TimeSeries{}, err
	}
	if string(tf.Interval) != tf.YahooInterval {
		points = resample(points, tf.Interval.Duration())
	}

	series := domain.NewTimeSeries(p.asset.Symbol, domain.SourceYahoo, tf.Interval, points)
	span.SetAttributes(attribute.Int("points", series.Len()))
	return series, nil
}

func parseYahooChart(chart yahooChart) ([]domain.PricePoint, error) {
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, domain.NewSourceError(domain.KindEmptyPayload, string(domain.SourceYahoo), nil)
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, domain.NewSourceError(domain.KindMalformedPayload, string(domain.SourceYahoo),
			fmt.Errorf("chart result has no quote indicators"))
	}
	quote := result.Indicators.Quote[0]

	points := make([]domain.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := valueAt(quote.Close, i)
		if c <= 0 {
			// null bars mark closed sessions
			continue
		}
		points = append(points, domain.PricePoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      valueAt(quote.Open, i),
			High:      valueAt(quote.High, i),
			Low:       valueAt(quote.Low, i),
			Close:     c,
			Volume:    valueAt(quote.Volume, i),
		})
	}
	return points, nil
}

func valueAt(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
