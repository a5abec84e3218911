package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"gold-pulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func TestPointsFromMarketChart(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := [][]float64{
		{float64(base.UnixMilli()), 10},
		{float64(base.Add(2 * time.Minute).UnixMilli()), 12},
		{float64(base.Add(6 * time.Minute).UnixMilli()), 8},
		{float64(base.Add(8 * time.Minute).UnixMilli()), 9},
	}
	volumes := [][]float64{
		{float64(base.Add(5 * time.Minute).UnixMilli()), 100},
		{float64(base.Add(10 * time.Minute).UnixMilli()), 200},
	}

	points := pointsFromMarketChart(prices, volumes, 5*time.Minute)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}

	first := points[0]
	if first.Open != 10 || first.High != 12 || first.Low != 10 || first.Close != 12 {
		t.Fatalf("unexpected first point: %+v", first)
	}
	if first.Volume != 100 {
		t.Fatalf("expected volume 100, got %f", first.Volume)
	}

	second := points[1]
	if !second.Timestamp.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("unexpected timestamp: %v", second.Timestamp)
	}
	if second.Open != 8 || second.Close != 9 || second.Low != 8 {
		t.Fatalf("unexpected second point: %+v", second)
	}
}

func TestFindClosestVolume(t *testing.T) {
	volumes := []volumePoint{
		{ts: 1000, vol: 1},
		{ts: 1500, vol: 5},
		{ts: 2000, vol: 10},
	}
	if vol := findClosestVolume(volumes, 1600); vol != 5 {
		t.Fatalf("expected volume 5, got %f", vol)
	}
	if vol := findClosestVolume(nil, 1600); vol != 0 {
		t.Fatalf("expected 0 with no samples, got %f", vol)
	}
}

func newTestCoinGecko(rt roundTripFunc) *CoinGeckoProvider {
	p := NewCoinGeckoProvider(testTracer, "http://example", time.Second)
	p.fetcher.client = &http.Client{Transport: rt}
	p.fetcher.limiter = NewRateLimiter(10, time.Millisecond)
	return p
}

func TestCoinGeckoFetchSeries(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC().Truncate(time.Hour).Add(-48 * time.Hour)
	p := newTestCoinGecko(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/coins/pax-gold/market_chart") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.URL.Query().Get("days"); got != "7" {
			t.Fatalf("expected days=7, got %s", got)
		}
		prices := make([][]float64, 0, 48)
		for i := 0; i < 48; i++ {
			prices = append(prices, []float64{float64(base.Add(time.Duration(i) * time.Hour).UnixMilli()), 2300 + float64(i)})
		}
		return jsonResponse(t, http.StatusOK, map[string]any{"prices": prices}), nil
	})

	series, err := p.FetchSeries(context.Background(), domain.MustTimeframe(domain.Timeframe1W))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 48 {
		t.Fatalf("expected 48 points, got %d", series.Len())
	}
	if series.Source != domain.SourceCoinGecko || series.Interval != domain.Interval1h {
		t.Fatalf("unexpected series metadata: %+v", series)
	}
	last, _ := series.Last()
	if last.Close != 2347 {
		t.Fatalf("expected last close 2347, got %f", last.Close)
	}
}

func TestCoinGeckoEmptyPrices(t *testing.T) {
	t.Parallel()

	p := newTestCoinGecko(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{"prices": [][]float64{}}), nil
	})

	_, err := p.FetchSeries(context.Background(), domain.MustTimeframe(domain.Timeframe1D))
	if !errors.Is(err, domain.ErrEmptyPayload) {
		t.Fatalf("expected empty payload, got %v", err)
	}
}

func TestCoinGeckoNonOKStatus(t *testing.T) {
	t.Parallel()

	p := newTestCoinGecko(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusTooManyRequests, map[string]string{"error": "rate limited"}), nil
	})

	_, err := p.FetchSeries(context.Background(), domain.MustTimeframe(domain.Timeframe1D))
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", err)
	}
}
