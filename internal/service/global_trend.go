package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gold-pulse/internal/domain"
	"gold-pulse/internal/forecast"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// DefaultGlobalTrendMaxAge is how long a global reference fit is reused
// before a refresh cycle fetches the reference window again.
const DefaultGlobalTrendMaxAge = 15 * time.Minute

// globalRefreshTimeout bounds a shared refresh once it is detached from the
// callers that started it.
const globalRefreshTimeout = 45 * time.Second

// GlobalTrend owns the regression over the longest reference window. It is
// shared by every timeframe and refreshed independently of them.
type GlobalTrend struct {
	tracer    trace.Tracer
	fetcher   SeriesFetcher
	reference domain.Timeframe
	maxAge    time.Duration
	now       func() time.Time

	mu        sync.RWMutex
	result    *domain.RegressionResult
	updatedAt time.Time

	group singleflight.Group
}

// NewGlobalTrend fits against the global reference timeframe. A non-positive
// maxAge uses DefaultGlobalTrendMaxAge.
func NewGlobalTrend(tracer trace.Tracer, fetcher SeriesFetcher, maxAge time.Duration) *GlobalTrend {
	if maxAge <= 0 {
		maxAge = DefaultGlobalTrendMaxAge
	}
	return &GlobalTrend{
		tracer:    tracer,
		fetcher:   fetcher,
		reference: domain.MustTimeframe(domain.GlobalReferenceTimeframe),
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Reference is the timeframe the global slope is sampled at.
func (g *GlobalTrend) Reference() domain.Timeframe { return g.reference }

// Current returns the held fit, or nil if none has succeeded yet.
func (g *GlobalTrend) Current() (*domain.RegressionResult, time.Time) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.result == nil {
		return nil, time.Time{}
	}
	r := *g.result
	return &r, g.updatedAt
}

// Get returns the held fit while it is younger than maxAge and refreshes it
// otherwise. A failed refresh falls back to the previous fit, which may be
// nil.
func (g *GlobalTrend) Get(ctx context.Context) *domain.RegressionResult {
	if r, at := g.Current(); r != nil && g.now().Sub(at) < g.maxAge {
		return r
	}
	r, err := g.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("global trend refresh failed, using previous fit")
		prev, _ := g.Current()
		return prev
	}
	return r
}

// Refresh fetches the reference window and refits. Concurrent callers share
// one fetch, which keeps running if the caller that started it gives up.
func (g *GlobalTrend) Refresh(ctx context.Context) (*domain.RegressionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := g.group.DoChan("global", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), globalRefreshTimeout)
		defer cancel()
		return g.refresh(rctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.RegressionResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *GlobalTrend) refresh(ctx context.Context) (*domain.RegressionResult, error) {
	ctx, span := g.tracer.Start(ctx, "global-trend.refresh")
	defer span.End()

	series, err := g.fetcher.Fetch(ctx, g.reference)
	if err != nil {
		return nil, fmt.Errorf("fetch %s reference: %w", g.reference.Key, err)
	}
	if series.Len() < 2 {
		return nil, domain.NewSourceError(domain.KindInsufficientHistory, "global-trend",
			fmt.Errorf("%d points in reference window", series.Len()))
	}

	r := forecast.GlobalRegression(series)
	g.mu.Lock()
	g.result = &r
	g.updatedAt = g.now()
	g.mu.Unlock()

	span.SetAttributes(
		attribute.Float64("slope", r.Slope),
		attribute.Float64("r_squared", r.RSquared),
		attribute.Int("points", series.Len()),
	)
	log.Info().
		Float64("slope", r.Slope).
		Float64("r_squared", r.RSquared).
		Int("points", series.Len()).
		Str("source", string(series.Source)).
		Msg("global trend refreshed")

	out := r
	return &out, nil
}
