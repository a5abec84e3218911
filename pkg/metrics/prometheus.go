package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the Prometheus sink for quote fetches, refresh cycles and
// sentiment. It satisfies the observer interfaces of quotes, service and
// sentiment.
type Recorder struct {
	sourceFetches   *prometheus.CounterVec
	sourceLatency   *prometheus.HistogramVec
	cacheServes     *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	refreshes       *prometheus.CounterVec
	refreshLatency  *prometheus.HistogramVec
	sentimentScore  prometheus.Gauge
	sentimentConf   prometheus.Gauge
	sentimentDegrad prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		sourceFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpulse_source_fetches_total",
				Help: "Provider fetch attempts by outcome",
			},
			[]string{"source", "outcome"},
		),
		sourceLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldpulse_source_fetch_duration_seconds",
				Help:    "Provider fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		cacheServes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpulse_cache_fallbacks_total",
				Help: "Series served from the last known-good cache",
			},
			[]string{"timeframe", "reason"},
		),
		breakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goldpulse_breaker_open",
				Help: "1 while the circuit breaker for a request key is open",
			},
			[]string{"key"},
		),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpulse_refresh_total",
				Help: "Refresh cycles by timeframe and result",
			},
			[]string{"timeframe", "result"},
		),
		refreshLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldpulse_refresh_duration_seconds",
				Help:    "Refresh cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"timeframe"},
		),
		sentimentScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "goldpulse_sentiment_score",
			Help: "Latest aggregate headline sentiment score",
		}),
		sentimentConf: f.NewGauge(prometheus.GaugeOpts{
			Name: "goldpulse_sentiment_confidence",
			Help: "Confidence of the sentiment currently served",
		}),
		sentimentDegrad: f.NewCounter(prometheus.CounterOpts{
			Name: "goldpulse_sentiment_degraded_total",
			Help: "Sentiment refreshes that fell back to cached or neutral results",
		}),
	}
}

func (r *Recorder) SourceFetched(source, outcome string, elapsed time.Duration) {
	r.sourceFetches.WithLabelValues(source, outcome).Inc()
	r.sourceLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (r *Recorder) ServedFromCache(timeframe, reason string) {
	r.cacheServes.WithLabelValues(timeframe, reason).Inc()
}

func (r *Recorder) BreakerStateChanged(key, state string) {
	v := 0.0
	if state == "open" {
		v = 1
	}
	r.breakerState.WithLabelValues(key).Set(v)
}

func (r *Recorder) RefreshCompleted(timeframe string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.refreshes.WithLabelValues(timeframe, result).Inc()
	r.refreshLatency.WithLabelValues(timeframe).Observe(elapsed.Seconds())
}

func (r *Recorder) SetSentiment(score, confidence float64, degraded bool) {
	r.sentimentScore.Set(score)
	r.sentimentConf.Set(confidence)
	if degraded {
		r.sentimentDegrad.Inc()
	}
}
