package service

import (
	"context"
	"time"

	"gold-pulse/internal/domain"
	"gold-pulse/internal/forecast"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// SeriesFetcher is satisfied by quotes.Orchestrator.
type SeriesFetcher interface {
	Fetch(ctx context.Context, tf domain.Timeframe) (domain.TimeSeries, error)
}

// SentimentReader returns the currently cached sentiment without blocking.
type SentimentReader interface {
	Latest() domain.SentimentResult
}

// SeriesArchive persists refreshed series.
type SeriesArchive interface {
	UpsertSeries(ctx context.Context, tf domain.TimeframeKey, series domain.TimeSeries) error
}

// RefreshObserver records cycle outcomes for metrics.
type RefreshObserver interface {
	RefreshCompleted(timeframe string, elapsed time.Duration, err error)
}

// RefreshResult is everything one refresh cycle produces for a timeframe.
// Prediction and QuickStats are omitted when their inputs are too short.
type RefreshResult struct {
	Timeframe       domain.Timeframe         `json:"timeframe"`
	Series          domain.TimeSeries        `json:"series"`
	Prediction      *domain.PredictionResult `json:"prediction,omitempty"`
	QuickStats      *domain.QuickStats       `json:"quick_stats,omitempty"`
	Sentiment       domain.SentimentResult   `json:"sentiment"`
	LocalSlope      float64                  `json:"local_slope"`
	BlendedSlope    float64                  `json:"blended_slope"`
	GlobalAvailable bool                     `json:"global_available"`
	RefreshedAt     time.Time                `json:"refreshed_at"`
}

// Pipeline runs one refresh cycle: the active series, the quick-stats window
// and the global reference are fetched concurrently, then regression,
// blending, projection and stats are computed against whatever sentiment is
// cached.
type Pipeline struct {
	tracer    trace.Tracer
	fetcher   SeriesFetcher
	global    *GlobalTrend
	sentiment SentimentReader
	archive   SeriesArchive
	observer  RefreshObserver
	now       func() time.Time
}

func NewPipeline(tracer trace.Tracer, fetcher SeriesFetcher, global *GlobalTrend, sentiment SentimentReader) *Pipeline {
	return &Pipeline{
		tracer:    tracer,
		fetcher:   fetcher,
		global:    global,
		sentiment: sentiment,
		now:       time.Now,
	}
}

func (p *Pipeline) WithArchive(a SeriesArchive) *Pipeline {
	p.archive = a
	return p
}

func (p *Pipeline) WithObserver(o RefreshObserver) *Pipeline {
	p.observer = o
	return p
}

// Refresh fails only when the active series cannot be obtained from any
// source or cache.
func (p *Pipeline) Refresh(ctx context.Context, tf domain.Timeframe) (*RefreshResult, error) {
	start := p.now()
	res, err := p.refresh(ctx, tf)
	if p.observer != nil {
		p.observer.RefreshCompleted(string(tf.Key), p.now().Sub(start), err)
	}
	return res, err
}

func (p *Pipeline) refresh(ctx context.Context, tf domain.Timeframe) (*RefreshResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.refresh")
	defer span.End()
	span.SetAttributes(attribute.String("timeframe", string(tf.Key)))

	var (
		series domain.TimeSeries
		window domain.TimeSeries
		global *domain.RegressionResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.fetcher.Fetch(gctx, tf)
		if err != nil {
			return err
		}
		series = s
		return nil
	})
	g.Go(func() error {
		w, err := p.fetcher.Fetch(gctx, domain.MustTimeframe(domain.QuickStatsTimeframe))
		if err != nil {
			log.Warn().Err(err).Msg("quick stats window unavailable")
			return nil
		}
		window = w
		return nil
	})
	if p.global != nil && tf.Key != domain.GlobalReferenceTimeframe {
		g.Go(func() error {
			global = p.global.Get(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	local := forecast.LocalRegression(series, tf)
	reference := domain.MustTimeframe(domain.GlobalReferenceTimeframe)
	if p.global != nil {
		reference = p.global.Reference()
	}
	if global == nil && tf.Key != domain.GlobalReferenceTimeframe {
		log.Debug().Str("timeframe", string(tf.Key)).Msg("no global reference yet, using local slope only")
	}
	blended := forecast.BlendSlope(local, global, tf, reference)

	sentiment := domain.NeutralSentiment(p.now().UTC())
	if p.sentiment != nil {
		sentiment = p.sentiment.Latest()
	}

	prediction, ok := forecast.Predict(series, blended, local, sentiment, tf)
	if !ok {
		log.Info().Str("timeframe", string(tf.Key)).Int("points", series.Len()).Msg("not enough history for a projection")
	}

	result := &RefreshResult{
		Timeframe:       tf,
		Series:          series,
		Prediction:      prediction,
		QuickStats:      forecast.ComputeQuickStats(window),
		Sentiment:       sentiment,
		LocalSlope:      local.Slope,
		BlendedSlope:    blended,
		GlobalAvailable: global != nil,
		RefreshedAt:     p.now().UTC(),
	}

	p.archiveSeries(ctx, tf, series)

	span.SetAttributes(
		attribute.Int("points", series.Len()),
		attribute.String("source", string(series.Source)),
		attribute.Bool("prediction", prediction != nil),
	)
	return result, nil
}

// RefreshGlobalTrend refits the global reference ahead of the next cycle.
func (p *Pipeline) RefreshGlobalTrend(ctx context.Context) error {
	if p.global == nil {
		return nil
	}
	_, err := p.global.Refresh(ctx)
	return err
}

// QuickStats fetches the reference window alone.
func (p *Pipeline) QuickStats(ctx context.Context) (*domain.QuickStats, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.quick-stats")
	defer span.End()

	window, err := p.fetcher.Fetch(ctx, domain.MustTimeframe(domain.QuickStatsTimeframe))
	if err != nil {
		return nil, err
	}
	return forecast.ComputeQuickStats(window), nil
}

func (p *Pipeline) archiveSeries(ctx context.Context, tf domain.Timeframe, series domain.TimeSeries) {
	if p.archive == nil || series.Source == domain.SourceCache || series.Len() == 0 {
		return
	}
	if err := p.archive.UpsertSeries(ctx, tf.Key, series); err != nil {
		log.Warn().Err(err).Str("timeframe", string(tf.Key)).Msg("series archive failed")
	}
}
