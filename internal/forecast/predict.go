package forecast

import (
	"time"

	"gold-pulse/internal/domain"
)

const (
	// MinPredictionHistory is the shortest series a projection is built from.
	MinPredictionHistory = 10

	// SentimentConfidenceThreshold gates every sentiment adjustment.
	SentimentConfidenceThreshold = 0.3

	// ProjectionTrendThreshold is the ±% total change separating a
	// bullish/bearish projection from a neutral one.
	ProjectionTrendThreshold = 0.05
)

// Predict projects tf.ProjectionPoints steps past the last point of series.
// It returns false, without error, when series is shorter than
// MinPredictionHistory.
//
// When the sentiment confidence reaches SentimentConfidenceThreshold the
// sentiment adjustment is applied twice: first as a per-step nudge spread
// over the horizon and added to the slope, then as a multiplicative factor
// on every projected value.
func Predict(series domain.TimeSeries, blendedSlope float64, local domain.RegressionResult, sentiment domain.SentimentResult, tf domain.Timeframe) (*domain.PredictionResult, bool) {
	if series.Len() < MinPredictionHistory {
		return nil, false
	}
	anchor, _ := series.Last()

	k := tf.ProjectionPoints
	if k <= 0 {
		k = 1
	}
	step := tf.Interval.Duration()
	if step <= 0 {
		step = series.Interval.Duration()
	}

	applySentiment := sentiment.Confidence >= SentimentConfidenceThreshold
	adjustPct := 0.0
	slope := blendedSlope
	if applySentiment {
		adjustPct = sentiment.AdjustmentPercent
		slope += (anchor.Close * adjustPct / 100) / float64(k)
	}

	points := make([]domain.PredictionPoint, 0, k+1)
	points = append(points, domain.PredictionPoint{Timestamp: anchor.Timestamp, Value: anchor.Close})
	for i := 1; i <= k; i++ {
		value := anchor.Close + slope*float64(i)
		if applySentiment {
			value *= 1 + adjustPct/100
		}
		points = append(points, domain.PredictionPoint{
			Timestamp: anchor.Timestamp.Add(time.Duration(i) * step),
			Value:     value,
		})
	}

	last := points[len(points)-1].Value
	totalChangePct := (last - anchor.Close) / anchor.Close * 100

	return &domain.PredictionResult{
		Points:              points,
		Slope:               slope,
		Trend:               ClassifyTrend(totalChangePct, ProjectionTrendThreshold),
		Confidence:          clamp(local.RSquared, 0, 1),
		SentimentAdjustment: adjustPct,
		SentimentSummary:    sentiment.Summary,
	}, true
}

// ClassifyTrend maps a percent change onto a trend using a symmetric
// threshold; values exactly on the threshold are neutral.
func ClassifyTrend(changePct, threshold float64) domain.Trend {
	switch {
	case changePct > threshold:
		return domain.TrendBullish
	case changePct < -threshold:
		return domain.TrendBearish
	default:
		return domain.TrendNeutral
	}
}
