package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"gold-pulse/internal/domain"
)

func newTestYahoo(rt roundTripFunc) *YahooProvider {
	p := NewYahooProvider(testTracer, "http://example", time.Second)
	p.fetcher.client = &http.Client{Transport: rt}
	return p
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func TestYahooFetchSeriesSkipsNullBars(t *testing.T) {
	t.Parallel()

	body := `{"chart":{"result":[{"timestamp":[1735689600,1735693200,1735696800],"indicators":{"quote":[{"open":[2600,null,2605],"high":[2610,null,2612],"low":[2595,null,2601],"close":[2605,null,2609],"volume":[10,null,12]}]}}],"error":null}}`
	p := newTestYahoo(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/v8/finance/chart/GC=F") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("interval") != "1h" || req.URL.Query().Get("range") != "5d" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		if req.Header.Get("User-Agent") == "" {
			t.Fatal("expected user agent header")
		}
		return textResponse(http.StatusOK, body), nil
	})

	series, err := p.FetchSeries(context.Background(), domain.MustTimeframe(domain.Timeframe1W))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", series.Len())
	}
	if series.Source != domain.SourceYahoo {
		t.Fatalf("expected yahoo source, got %s", series.Source)
	}
}

func TestYahooResamplesToFourHours(t *testing.T) {
	t.Parallel()

	// 1735689600 is 2025-01-01T00:00Z; eight hourly bars fold into two 4h bars.
	body := `{"chart":{"result":[{"timestamp":[1735689600,1735693200,1735696800,1735700400,1735704000,1735707600,1735711200,1735714800],"indicators":{"quote":[{"open":[1,2,3,4,5,6,7,8],"high":[1,2,3,9,5,6,7,8],"low":[1,2,3,4,5,6,7,8],"close":[1,2,3,4,5,6,7,8],"volume":[1,1,1,1,1,1,1,1]}]}}]}}`
	p := newTestYahoo(func(req *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, body), nil
	})

	series, err := p.FetchSeries(context.Background(), domain.MustTimeframe(domain.Timeframe1M))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 resampled points, got %d", series.Len())
	}
	first := series.Points[0]
	if first.Open != 1 || first.High != 9 || first.Close != 4 || first.Volume != 4 {
		t.Fatalf("unexpected first bar: %+v", first)
	}
	if series.Interval != domain.Interval4h {
		t.Fatalf("expected 4h interval, got %s", series.Interval)
	}
}

func TestYahooAPIError(t *testing.T) {
	t.Parallel()

	p := newTestYahoo(func(req *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`), nil
	})

	_, err := p.FetchSeries(context.Background(), domain.MustTimeframe(domain.Timeframe1D))
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestYahooMalformedPayload(t *testing.T) {
	t.Parallel()

	p := newTestYahoo(func(req *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, `{"chart":`), nil
	})

	_, err := p.FetchSeries(context.Background(), domain.MustTimeframe(domain.Timeframe1D))
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}
