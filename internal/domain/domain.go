package domain

import "time"

// Trend is the direction of a projection or of realized movement.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

func (t Trend) IsValid() bool {
	switch t {
	case TrendBullish, TrendBearish, TrendNeutral:
		return true
	}
	return false
}

// SentimentCategory classifies an aggregated headline score.
type SentimentCategory string

const (
	SentimentBullish SentimentCategory = "bullish"
	SentimentBearish SentimentCategory = "bearish"
	SentimentMixed   SentimentCategory = "mixed"
	SentimentNeutral SentimentCategory = "neutral"
)

type RegressionResult struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

type PredictionPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// PredictionResult is a short projection anchored on the last historical
// point: Points[0] is that point verbatim.
type PredictionResult struct {
	Points              []PredictionPoint `json:"points"`
	Slope               float64           `json:"slope"`
	Trend               Trend             `json:"trend"`
	Confidence          float64           `json:"confidence"`
	SentimentAdjustment float64           `json:"sentiment_adjustment"`
	SentimentSummary    string            `json:"sentiment_summary"`
}

type SentimentResult struct {
	Score             float64           `json:"score"`
	AdjustmentPercent float64           `json:"adjustment_percent"`
	Confidence        float64           `json:"confidence"`
	Category          SentimentCategory `json:"category"`
	TriggerWords      []string          `json:"trigger_words"`
	Summary           string            `json:"summary"`
	Headlines         []string          `json:"headlines"`
	Timestamp         time.Time         `json:"timestamp"`
}

// NeutralSentiment is the zero-confidence result used when nothing can be
// scored.
func NeutralSentiment(at time.Time) SentimentResult {
	return SentimentResult{
		Category:     SentimentNeutral,
		TriggerWords: []string{},
		Headlines:    []string{},
		Timestamp:    at,
	}
}

type QuickStats struct {
	CurrentPrice     float64 `json:"current_price"`
	Change24h        float64 `json:"change_24h"`
	ChangePercent24h float64 `json:"change_percent_24h"`
	WeeklyHigh       float64 `json:"weekly_high"`
	WeeklyLow        float64 `json:"weekly_low"`
	Trend            Trend   `json:"trend"`
}
