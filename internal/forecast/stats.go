package forecast

import (
	"time"

	"gold-pulse/internal/domain"
)

// QuickStatsTrendThreshold is coarser than the projection threshold since it
// classifies realized movement.
const QuickStatsTrendThreshold = 0.3

// ComputeQuickStats summarizes a long reference window. The 24h change is
// measured over the trailing 24 hours ending at the last point; without at
// least two points in that slice the latest price is reported with zero
// change. An empty window yields nil.
func ComputeQuickStats(window domain.TimeSeries) *domain.QuickStats {
	last, ok := window.Last()
	if !ok {
		return nil
	}

	stats := &domain.QuickStats{
		CurrentPrice: last.Close,
		Trend:        domain.TrendNeutral,
	}

	high, low := 0.0, 0.0
	for _, p := range window.Points {
		h := p.High
		if h <= 0 {
			h = p.Close
		}
		if h > high {
			high = h
		}
		l := p.Low
		if l <= 0 {
			continue
		}
		if low == 0 || l < low {
			low = l
		}
	}
	if low == 0 {
		low = last.Close
	}
	stats.WeeklyHigh = high
	stats.WeeklyLow = low

	slice := window.Since(last.Timestamp.Add(-24 * time.Hour))
	if len(slice) < 2 {
		return stats
	}
	first := slice[0]
	stats.Change24h = last.Close - first.Close
	stats.ChangePercent24h = stats.Change24h / first.Close * 100
	stats.Trend = ClassifyTrend(stats.ChangePercent24h, QuickStatsTrendThreshold)
	return stats
}
