package forecast

import (
	"math"

	"gold-pulse/internal/domain"
)

// Regress fits an ordinary least squares line through values, using the
// indices 0..n-1 as x. It never fails: n < 2 yields slope 0 with the single
// value (or 0) as intercept, and a zero denominator yields slope 0 with the
// mean as intercept. RSquared is 0 whenever the total sum of squares is 0.
func Regress(values []float64) domain.RegressionResult {
	n := len(values)
	if n == 0 {
		return domain.RegressionResult{}
	}
	if n == 1 {
		return domain.RegressionResult{Intercept: values[0]}
	}
	if isFlat(values) {
		return domain.RegressionResult{Intercept: values[0]}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	meanY := sumY / fn

	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return domain.RegressionResult{Intercept: meanY}
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	// Σy² − n·ȳ² loses precision on large prices, so SStot is taken from
	// the deviations directly.
	var ssTot, ssRes float64
	for i, y := range values {
		d := y - meanY
		ssTot += d * d
		r := y - (slope*float64(i) + intercept)
		ssRes += r * r
	}

	rSquared := 0.0
	if ssTot > 0 {
		rSquared = clamp(1-ssRes/ssTot, 0, 1)
	}
	if isBad(slope) || isBad(intercept) {
		return domain.RegressionResult{Intercept: meanY}
	}

	return domain.RegressionResult{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func isFlat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
