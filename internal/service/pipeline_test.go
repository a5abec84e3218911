package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"gold-pulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubFetcher struct {
	mu     sync.Mutex
	series map[domain.TimeframeKey]domain.TimeSeries
	errs   map[domain.TimeframeKey]error
	calls  map[domain.TimeframeKey]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		series: make(map[domain.TimeframeKey]domain.TimeSeries),
		errs:   make(map[domain.TimeframeKey]error),
		calls:  make(map[domain.TimeframeKey]int),
	}
}

func (f *stubFetcher) Fetch(ctx context.Context, tf domain.Timeframe) (domain.TimeSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[tf.Key]++
	if err := f.errs[tf.Key]; err != nil {
		return domain.TimeSeries{}, err
	}
	return f.series[tf.Key], nil
}

func (f *stubFetcher) set(key domain.TimeframeKey, s domain.TimeSeries) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series[key] = s
}

func (f *stubFetcher) fail(key domain.TimeframeKey, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key] = err
}

func (f *stubFetcher) count(key domain.TimeframeKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func linearSeries(source domain.DataSource, interval domain.Interval, n int, start, step float64) domain.TimeSeries {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.PricePoint, n)
	for i := range points {
		c := start + step*float64(i)
		points[i] = domain.PricePoint{
			Timestamp: base.Add(time.Duration(i) * interval.Duration()),
			Open:      c, High: c + 1, Low: c - 1, Close: c,
		}
	}
	return domain.NewTimeSeries("XAU", source, interval, points)
}

type stubSentiment struct{ result domain.SentimentResult }

func (s stubSentiment) Latest() domain.SentimentResult { return s.result }

type stubArchive struct {
	mu    sync.Mutex
	saved []domain.TimeframeKey
}

func (a *stubArchive) UpsertSeries(ctx context.Context, tf domain.TimeframeKey, s domain.TimeSeries) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, tf)
	return nil
}

func fullFetcher() *stubFetcher {
	f := newStubFetcher()
	f.set(domain.Timeframe1D, linearSeries(domain.SourceCoinGecko, domain.Interval5m, 60, 2300, 0.5))
	f.set(domain.Timeframe1W, linearSeries(domain.SourceCoinGecko, domain.Interval1h, 120, 2250, 1))
	f.set(domain.Timeframe3M, linearSeries(domain.SourceCoinGecko, domain.Interval1d, 90, 2000, 4))
	return f
}

func TestPipelineRefreshBuildsFullResult(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	global := NewGlobalTrend(testTracer, fetcher, time.Hour)
	p := NewPipeline(testTracer, fetcher, global, stubSentiment{result: domain.NeutralSentiment(time.Now())})

	tf := domain.MustTimeframe(domain.Timeframe1D)
	res, err := p.Refresh(context.Background(), tf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Prediction == nil || len(res.Prediction.Points) != tf.ProjectionPoints+1 {
		t.Fatalf("expected %d projection points, got %+v", tf.ProjectionPoints+1, res.Prediction)
	}
	last, _ := res.Series.Last()
	if res.Prediction.Points[0].Value != last.Close || !res.Prediction.Points[0].Timestamp.Equal(last.Timestamp) {
		t.Fatalf("first projection point must be the anchor")
	}
	if res.QuickStats == nil || res.QuickStats.CurrentPrice != 2369 {
		t.Fatalf("unexpected quick stats: %+v", res.QuickStats)
	}
	if !res.GlobalAvailable {
		t.Fatal("expected global reference")
	}

	// local slope 0.5 per 5m, global 4 per day rescaled to 5m
	want := 0.5*0.3 + 4*(5.0/1440.0)*0.7
	if math.Abs(res.BlendedSlope-want) > 1e-9 {
		t.Fatalf("expected blended slope %f, got %f", want, res.BlendedSlope)
	}
}

func TestPipelineRefreshFailsWithoutSeries(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	noData := domain.NewSourceError(domain.KindNoData, "quotes", errors.New("exhausted"))
	fetcher.fail(domain.Timeframe1D, noData)
	p := NewPipeline(testTracer, fetcher, NewGlobalTrend(testTracer, fetcher, time.Hour), nil)

	_, err := p.Refresh(context.Background(), domain.MustTimeframe(domain.Timeframe1D))
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected no data error, got %v", err)
	}
}

func TestPipelineOmitsOptionalOutputs(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.set(domain.Timeframe1D, linearSeries(domain.SourceYahoo, domain.Interval5m, 9, 2300, 1))
	fetcher.fail(domain.Timeframe1W, errors.New("down"))
	fetcher.fail(domain.Timeframe3M, errors.New("down"))
	p := NewPipeline(testTracer, fetcher, NewGlobalTrend(testTracer, fetcher, time.Hour), nil)

	res, err := p.Refresh(context.Background(), domain.MustTimeframe(domain.Timeframe1D))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Prediction != nil {
		t.Fatal("nine points must not produce a projection")
	}
	if res.QuickStats != nil {
		t.Fatal("quick stats must be omitted when the window is unavailable")
	}
	if res.GlobalAvailable {
		t.Fatal("global reference should be unavailable")
	}
	if res.BlendedSlope != res.LocalSlope {
		t.Fatalf("without a global reference the local slope is used alone")
	}
}

func TestPipelineGlobalTimeframeSkipsSeparateFetch(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	p := NewPipeline(testTracer, fetcher, NewGlobalTrend(testTracer, fetcher, time.Hour), nil)

	res, err := p.Refresh(context.Background(), domain.MustTimeframe(domain.Timeframe3M))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.count(domain.Timeframe3M) != 1 {
		t.Fatalf("expected one 3M fetch, got %d", fetcher.count(domain.Timeframe3M))
	}
	if res.BlendedSlope != res.LocalSlope {
		t.Fatal("the reference timeframe blends to its own slope")
	}
}

func TestPipelineAppliesCachedSentiment(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	bullish := domain.SentimentResult{Score: 1, AdjustmentPercent: 3, Confidence: 1, Category: domain.SentimentBullish}
	plain := NewPipeline(testTracer, fetcher, nil, nil)
	nudged := NewPipeline(testTracer, fetcher, nil, stubSentiment{result: bullish})

	tf := domain.MustTimeframe(domain.Timeframe1D)
	a, err := plain.Refresh(context.Background(), tf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := nudged.Refresh(context.Background(), tf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lastA := a.Prediction.Points[len(a.Prediction.Points)-1].Value
	lastB := b.Prediction.Points[len(b.Prediction.Points)-1].Value
	if lastB <= lastA {
		t.Fatalf("bullish sentiment should lift the projection: %f <= %f", lastB, lastA)
	}
	if b.Prediction.SentimentAdjustment != 3 {
		t.Fatalf("expected adjustment 3, got %f", b.Prediction.SentimentAdjustment)
	}
}

func TestPipelineArchivesLiveSeriesOnly(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	archive := &stubArchive{}
	p := NewPipeline(testTracer, fetcher, nil, nil).WithArchive(archive)

	tf := domain.MustTimeframe(domain.Timeframe1W)
	if _, err := p.Refresh(context.Background(), tf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetcher.set(domain.Timeframe1W, fetcher.series[domain.Timeframe1W].WithSource(domain.SourceCache))
	if _, err := p.Refresh(context.Background(), tf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(archive.saved) != 1 {
		t.Fatalf("expected only the live series archived, got %v", archive.saved)
	}
}

type recordingObserver struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingObserver) RefreshCompleted(_ string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func TestPipelineReportsToObserver(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	fetcher.fail(domain.Timeframe1M, errors.New("down"))
	obs := &recordingObserver{}
	p := NewPipeline(testTracer, fetcher, nil, nil).WithObserver(obs)

	_, _ = p.Refresh(context.Background(), domain.MustTimeframe(domain.Timeframe1D))
	_, _ = p.Refresh(context.Background(), domain.MustTimeframe(domain.Timeframe1M))
	if len(obs.errs) != 2 || obs.errs[0] != nil || obs.errs[1] == nil {
		t.Fatalf("unexpected observed errors: %v", obs.errs)
	}
}

func TestPipelineQuickStats(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testTracer, fullFetcher(), nil, nil)
	stats, err := p.QuickStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats == nil || stats.CurrentPrice != 2369 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
