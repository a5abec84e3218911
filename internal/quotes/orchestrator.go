package quotes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gold-pulse/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// MinValidPoints is the smallest series a source may return and still be
// accepted.
const MinValidPoints = 6

const (
	DefaultSourceTimeout    = 12 * time.Second
	DefaultBreakerThreshold = 3
	DefaultBreakerCooldown  = 2 * time.Minute
)

// Source is one market data provider.
type Source interface {
	Name() domain.DataSource
	FetchSeries(ctx context.Context, tf domain.Timeframe) (domain.TimeSeries, error)
}

// Observer receives fetch outcomes for metrics.
type Observer interface {
	SourceFetched(source, outcome string, elapsed time.Duration)
	ServedFromCache(timeframe, reason string)
	BreakerStateChanged(key, state string)
}

// Settings tunes source timeouts and the per-key breaker. Zero values take
// the defaults.
type Settings struct {
	SourceTimeout    time.Duration
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.SourceTimeout <= 0 {
		s.SourceTimeout = DefaultSourceTimeout
	}
	if s.BreakerThreshold == 0 {
		s.BreakerThreshold = DefaultBreakerThreshold
	}
	if s.BreakerCooldown <= 0 {
		s.BreakerCooldown = DefaultBreakerCooldown
	}
	return s
}

// Orchestrator fetches a timeframe's series from the primary source, falls
// back to the secondary, and finally to the last known-good series for the
// request key. A breaker per key stops hitting the network after repeated
// failures until its cooldown elapses.
type Orchestrator struct {
	tracer    trace.Tracer
	primary   Source
	secondary Source
	cache     SeriesCache
	observer  Observer
	symbols   []string
	settings  Settings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker

	group singleflight.Group
}

// NewOrchestrator builds an orchestrator over the gold symbols. A nil cache
// gets an in-process MemoryCache.
func NewOrchestrator(tracer trace.Tracer, primary, secondary Source, cache SeriesCache, settings Settings) *Orchestrator {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Orchestrator{
		tracer:    tracer,
		primary:   primary,
		secondary: secondary,
		cache:     cache,
		symbols:   domain.Gold.Symbols(),
		settings:  settings.withDefaults(),
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	o.observer = obs
	return o
}

// Key returns the request key used for caching and breaker state.
func (o *Orchestrator) Key(tf domain.Timeframe) string {
	return domain.RequestKey(tf.Key, o.symbols)
}

// Fetch returns the series for tf. Concurrent calls for the same key share
// one upstream fetch. The shared fetch is detached from the callers'
// contexts and bounded by fetchBudget, so a caller that gives up only stops
// waiting; the others still get the live series or the cached fallback.
func (o *Orchestrator) Fetch(ctx context.Context, tf domain.Timeframe) (domain.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return domain.TimeSeries{}, err
	}
	key := o.Key(tf)
	ch := o.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.fetchBudget())
		defer cancel()
		return o.fetch(fctx, tf, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.TimeSeries{}, res.Err
		}
		return res.Val.(domain.TimeSeries), nil
	case <-ctx.Done():
		return domain.TimeSeries{}, ctx.Err()
	}
}

// fetchBudget covers one attempt per source plus the cache read.
func (o *Orchestrator) fetchBudget() time.Duration {
	return 2*o.settings.SourceTimeout + time.Second
}

func (o *Orchestrator) fetch(ctx context.Context, tf domain.Timeframe, key string) (domain.TimeSeries, error) {
	ctx, span := o.tracer.Start(ctx, "quotes.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	v, err := o.breaker(key).Execute(func() (any, error) {
		return o.fetchLive(ctx, tf)
	})
	if err == nil {
		series := v.(domain.TimeSeries)
		if cerr := o.cache.Set(ctx, key, series); cerr != nil {
			log.Warn().Err(cerr).Str("key", key).Msg("series cache write failed")
		}
		span.SetAttributes(attribute.String("source", string(series.Source)))
		return series, nil
	}

	reason := "sources_failed"
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		reason = "breaker_open"
	}
	span.SetAttributes(attribute.String("fallback", reason))
	return o.fromCache(ctx, tf, key, reason, err)
}

func (o *Orchestrator) fetchLive(ctx context.Context, tf domain.Timeframe) (domain.TimeSeries, error) {
	series, primaryErr := o.attempt(ctx, o.primary, tf)
	if primaryErr == nil {
		return series, nil
	}
	if o.secondary == nil {
		return domain.TimeSeries{}, primaryErr
	}

	log.Warn().
		Err(primaryErr).
		Str("timeframe", string(tf.Key)).
		Str("source", string(o.primary.Name())).
		Msg("primary source failed, trying secondary")

	series, secondaryErr := o.attempt(ctx, o.secondary, tf)
	if secondaryErr == nil {
		return series, nil
	}
	return domain.TimeSeries{}, fmt.Errorf("all sources failed: %w", errors.Join(primaryErr, secondaryErr))
}

func (o *Orchestrator) attempt(ctx context.Context, src Source, tf domain.Timeframe) (domain.TimeSeries, error) {
	name := string(src.Name())
	ctx, cancel := context.WithTimeout(ctx, o.settings.SourceTimeout)
	defer cancel()

	start := time.Now()
	series, err := src.FetchSeries(ctx, tf)
	if err == nil && series.Len() < MinValidPoints {
		err = domain.NewSourceError(domain.KindInsufficientHistory, name,
			fmt.Errorf("%d valid points, need %d", series.Len(), MinValidPoints))
	}
	if err != nil && domain.KindOf(err) == "" {
		kind := domain.KindNetworkFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.KindTimeout
		}
		err = domain.NewSourceError(kind, name, err)
	}

	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	if o.observer != nil {
		o.observer.SourceFetched(name, outcome, time.Since(start))
	}
	return series, err
}

func (o *Orchestrator) fromCache(ctx context.Context, tf domain.Timeframe, key, reason string, cause error) (domain.TimeSeries, error) {
	cached, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("series cache read failed")
	}
	if !ok {
		return domain.TimeSeries{}, domain.NewSourceError(domain.KindNoData, "quotes",
			fmt.Errorf("%s and nothing cached for %s: %w", reason, key, cause))
	}

	log.Warn().
		Err(cause).
		Str("timeframe", string(tf.Key)).
		Str("reason", reason).
		Int("points", cached.Len()).
		Msg("serving last known-good series")
	if o.observer != nil {
		o.observer.ServedFromCache(string(tf.Key), reason)
	}
	return cached.WithSource(domain.SourceCache), nil
}

func (o *Orchestrator) breaker(key string) *gobreaker.CircuitBreaker {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cb, ok := o.breakers[key]; ok {
		return cb
	}
	threshold := o.settings.BreakerThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Timeout:     o.settings.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("key", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			if o.observer != nil {
				o.observer.BreakerStateChanged(name, to.String())
			}
		},
	})
	o.breakers[key] = cb
	return cb
}

// BreakerStates reports the state of every breaker created so far.
func (o *Orchestrator) BreakerStates() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.breakers))
	for k, cb := range o.breakers {
		out[k] = cb.State().String()
	}
	return out
}
