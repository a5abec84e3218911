package sentiment

import (
	"context"
	"errors"
	"time"

	"gold-pulse/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// HeadlineSource supplies the batch of headlines to score.
type HeadlineSource interface {
	FetchHeadlines(ctx context.Context) ([]string, error)
}

// DefaultRefreshTimeout bounds one shared headline fetch.
const DefaultRefreshTimeout = 30 * time.Second

// Observer receives each result the engine publishes.
type Observer interface {
	SetSentiment(score, confidence float64, degraded bool)
}

// Archive keeps a history of freshly scored batches.
type Archive interface {
	SaveSnapshot(ctx context.Context, r domain.SentimentResult) error
}

// Engine refreshes and caches headline sentiment independently of price
// data. It never returns an error: failures degrade to the cached result at
// half confidence, or to a zero-confidence neutral result.
type Engine struct {
	tracer   trace.Tracer
	source   HeadlineSource
	analyzer *Analyzer
	cache    *Cache
	observer Observer
	archive  Archive
	timeout  time.Duration
	now      func() time.Time
	group    singleflight.Group
}

// NewEngine wires a headline source to an analyzer and result cache. Nil
// analyzer or cache fall back to the built-in lexicon and DefaultTTL.
func NewEngine(tracer trace.Tracer, source HeadlineSource, analyzer *Analyzer, cache *Cache) *Engine {
	if analyzer == nil {
		analyzer = defaultAnalyzer
	}
	if cache == nil {
		cache = NewCache(DefaultTTL)
	}
	return &Engine{
		tracer:   tracer,
		source:   source,
		analyzer: analyzer,
		cache:    cache,
		timeout:  DefaultRefreshTimeout,
		now:      time.Now,
	}
}

// WithObserver attaches a metrics sink.
func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// WithArchive records every successful refresh.
func (e *Engine) WithArchive(a Archive) *Engine {
	e.archive = a
	return e
}

// Current returns the cached result while fresh, refreshing otherwise.
func (e *Engine) Current(ctx context.Context) domain.SentimentResult {
	if cached, fresh, ok := e.cache.Get(); ok && fresh {
		return cached
	}
	return e.Refresh(ctx)
}

// Latest returns whatever is cached without blocking on the network.
func (e *Engine) Latest() domain.SentimentResult {
	if cached, _, ok := e.cache.Get(); ok {
		return cached
	}
	return domain.NeutralSentiment(e.now())
}

// Refresh fetches and scores a new batch. Concurrent callers share one
// fetch, which runs detached from their contexts. A caller whose context
// ends first gets the cached result untouched.
func (e *Engine) Refresh(ctx context.Context) domain.SentimentResult {
	if ctx.Err() != nil {
		return e.Latest()
	}
	ch := e.group.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()
		return e.refresh(rctx), nil
	})
	select {
	case res := <-ch:
		return res.Val.(domain.SentimentResult)
	case <-ctx.Done():
		return e.Latest()
	}
}

func (e *Engine) refresh(ctx context.Context) domain.SentimentResult {
	ctx, span := e.tracer.Start(ctx, "sentiment.refresh")
	defer span.End()

	if e.source == nil {
		return e.degrade(nil)
	}

	headlines, err := e.source.FetchHeadlines(ctx)
	if errors.Is(err, context.Canceled) {
		// abandoned, not failed: leave the cached confidence alone
		return e.Latest()
	}
	if err != nil {
		return e.degrade(err)
	}

	result := e.analyzer.Analyze(headlines)
	result.Timestamp = e.now().UTC()
	e.cache.Set(result)

	span.SetAttributes(
		attribute.Int("headlines", len(result.Headlines)),
		attribute.Float64("score", result.Score),
		attribute.Float64("confidence", result.Confidence),
	)
	log.Info().
		Int("headlines", len(result.Headlines)).
		Float64("score", result.Score).
		Float64("confidence", result.Confidence).
		Str("category", string(result.Category)).
		Msg("sentiment refreshed")
	e.publish(result, false)
	if e.archive != nil {
		if err := e.archive.SaveSnapshot(ctx, result); err != nil {
			log.Warn().Err(err).Msg("failed to archive sentiment snapshot")
		}
	}
	return result
}

func (e *Engine) degrade(err error) domain.SentimentResult {
	e.cache.MarkDegraded()
	if cached, _, ok := e.cache.Get(); ok {
		log.Warn().Err(err).Float64("confidence", cached.Confidence).Msg("sentiment fetch failed, serving cached result")
		e.publish(cached, true)
		return cached
	}

	log.Warn().Err(err).Msg("sentiment fetch failed with nothing cached, serving neutral")
	neutral := domain.NeutralSentiment(e.now().UTC())
	e.publish(neutral, true)
	return neutral
}

func (e *Engine) publish(r domain.SentimentResult, degraded bool) {
	if e.observer != nil {
		e.observer.SetSentiment(r.Score, r.Confidence, degraded)
	}
}
