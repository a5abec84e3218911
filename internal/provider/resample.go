package provider

import (
	"math"
	"sort"
	"time"

	"gold-pulse/internal/domain"
)

// resample folds points into interval-aligned bars. The first point in a
// bucket is its open and the last is its close. Volumes are summed.
func resample(points []domain.PricePoint, interval time.Duration) []domain.PricePoint {
	if len(points) == 0 || interval <= 0 {
		return nil
	}

	sorted := append([]domain.PricePoint(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	buckets := make(map[int64]*domain.PricePoint)
	keys := make([]int64, 0)
	for _, pt := range sorted {
		if pt.Close <= 0 {
			continue
		}
		key := pt.Timestamp.Truncate(interval).UnixMilli()
		b, ok := buckets[key]
		if !ok {
			open := pt.Open
			if open <= 0 {
				open = pt.Close
			}
			buckets[key] = &domain.PricePoint{
				Timestamp: time.UnixMilli(key).UTC(),
				Open:      open,
				High:      math.Max(pt.High, pt.Close),
				Low:       positiveMin(pt.Low, pt.Close),
				Close:     pt.Close,
				Volume:    pt.Volume,
			}
			keys = append(keys, key)
			continue
		}
		b.High = math.Max(b.High, math.Max(pt.High, pt.Close))
		b.Low = positiveMin(b.Low, positiveMin(pt.Low, pt.Close))
		b.Close = pt.Close
		b.Volume += pt.Volume
	}

	out := make([]domain.PricePoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, *buckets[k])
	}
	return out
}

func positiveMin(a, b float64) float64 {
	switch {
	case a <= 0:
		return b
	case b <= 0:
		return a
	}
	return math.Min(a, b)
}

type volumePoint struct {
	ts  int64
	vol float64
}

// pointsFromMarketChart turns [ts_ms, price] pairs into bars of the given
// interval. Each bar takes the volume sample closest to its close time.
func pointsFromMarketChart(prices, volumes [][]float64, interval time.Duration) []domain.PricePoint {
	raw := make([]domain.PricePoint, 0, len(prices))
	for _, pt := range prices {
		if len(pt) < 2 || pt[0] <= 0 {
			continue
		}
		raw = append(raw, domain.PricePoint{
			Timestamp: time.UnixMilli(int64(pt[0])).UTC(),
			Close:     pt[1],
		})
	}

	bars := resample(raw, interval)
	if len(bars) == 0 {
		return nil
	}

	volPoints := make([]volumePoint, 0, len(volumes))
	for _, v := range volumes {
		if len(v) >= 2 {
			volPoints = append(volPoints, volumePoint{ts: int64(v[0]), vol: v[1]})
		}
	}
	for i := range bars {
		bars[i].Volume = findClosestVolume(volPoints, bars[i].Timestamp.Add(interval).UnixMilli())
	}
	return bars
}

func findClosestVolume(volumes []volumePoint, targetMs int64) float64 {
	if len(volumes) == 0 {
		return 0
	}
	closest := volumes[0]
	minDiff := int64(math.MaxInt64)
	for _, v := range volumes {
		diff := v.ts - targetMs
		if diff < 0 {
			diff = -diff
		}
		if diff < minDiff {
			minDiff = diff
			closest = v
		}
	}
	return closest.vol
}
