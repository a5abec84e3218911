package service

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"gold-pulse/internal/domain"
)

func TestGlobalTrendReusesFreshFit(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	g := NewGlobalTrend(testTracer, fetcher, time.Hour)

	first := g.Get(context.Background())
	if first == nil || math.Abs(first.Slope-4) > 1e-9 {
		t.Fatalf("expected slope 4, got %+v", first)
	}
	_ = g.Get(context.Background())
	if n := fetcher.count(domain.Timeframe3M); n != 1 {
		t.Fatalf("expected one fetch while fresh, got %d", n)
	}
}

func TestGlobalTrendRefetchesWhenStale(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	g := NewGlobalTrend(testTracer, fetcher, time.Minute)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	_ = g.Get(context.Background())
	now = now.Add(2 * time.Minute)
	_ = g.Get(context.Background())
	if n := fetcher.count(domain.Timeframe3M); n != 2 {
		t.Fatalf("expected refetch once stale, got %d", n)
	}
}

func TestGlobalTrendKeepsPreviousFitOnFailure(t *testing.T) {
	t.Parallel()

	fetcher := fullFetcher()
	g := NewGlobalTrend(testTracer, fetcher, time.Minute)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	if _, err := g.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetcher.fail(domain.Timeframe3M, errors.New("down"))
	now = now.Add(time.Hour)

	got := g.Get(context.Background())
	if got == nil || math.Abs(got.Slope-4) > 1e-9 {
		t.Fatalf("expected previous fit, got %+v", got)
	}
}

func TestGlobalTrendNilBeforeFirstSuccess(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.fail(domain.Timeframe3M, errors.New("down"))
	g := NewGlobalTrend(testTracer, fetcher, time.Minute)

	if got := g.Get(context.Background()); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

// gatedFetcher holds every fetch until release is closed.
type gatedFetcher struct {
	*stubFetcher
	release chan struct{}
	started atomic.Int32
}

func (f *gatedFetcher) Fetch(ctx context.Context, tf domain.Timeframe) (domain.TimeSeries, error) {
	f.started.Add(1)
	select {
	case <-f.release:
	case <-ctx.Done():
		return domain.TimeSeries{}, ctx.Err()
	}
	return f.stubFetcher.Fetch(ctx, tf)
}

func TestGlobalTrendRefreshSurvivesFirstCallerCancel(t *testing.T) {
	t.Parallel()

	fetcher := &gatedFetcher{stubFetcher: fullFetcher(), release: make(chan struct{})}
	g := NewGlobalTrend(testTracer, fetcher, time.Minute)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := g.Refresh(leaderCtx)
		leaderErr <- err
	}()
	deadline := time.Now().Add(time.Second)
	for fetcher.started.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("refresh never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	follower := make(chan *domain.RegressionResult, 1)
	go func() {
		r, err := g.Refresh(context.Background())
		if err != nil {
			t.Errorf("follower refresh failed: %v", err)
		}
		follower <- r
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected leader to see its own cancel, got %v", err)
	}

	close(fetcher.release)
	got := <-follower
	if got == nil || math.Abs(got.Slope-4) > 1e-9 {
		t.Fatalf("expected slope 4 for the waiting caller, got %+v", got)
	}
	if n := fetcher.count(domain.Timeframe3M); n != 1 {
		t.Fatalf("expected one shared fetch, got %d", n)
	}
}
