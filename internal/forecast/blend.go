package forecast

import (
	"time"

	"gold-pulse/internal/domain"
)

// RescaleSlope converts a per-point slope sampled every from into the
// equivalent per-point slope at spacing to.
func RescaleSlope(slope float64, from, to time.Duration) float64 {
	if from <= 0 || to <= 0 {
		return slope
	}
	return slope * (float64(to) / float64(from))
}

// Blend mixes a local slope with a global slope sampled at globalInterval,
// after rescaling the global slope to activeInterval:
//
//	blended = local·w + rescaledGlobal·(1−w)
//
// w is clamped to [0,1]. At w=1 the result is exactly local; at w=0 it is
// exactly the rescaled global slope.
func Blend(local, global float64, localWeight float64, activeInterval, globalInterval time.Duration) float64 {
	w := clamp(localWeight, 0, 1)
	rescaled := RescaleSlope(global, globalInterval, activeInterval)
	switch w {
	case 1:
		return local
	case 0:
		return rescaled
	}
	return local*w + rescaled*(1-w)
}

// BlendSlope applies the active timeframe's weight from the timeframe table.
// A nil global result means no reference is available yet and the local
// slope is used alone.
func BlendSlope(local domain.RegressionResult, global *domain.RegressionResult, active, reference domain.Timeframe) float64 {
	if global == nil {
		return local.Slope
	}
	return Blend(local.Slope, global.Slope, active.LocalWeight, active.Interval.Duration(), reference.Interval.Duration())
}

// LocalRegression fits the trailing lookback closes of series.
func LocalRegression(series domain.TimeSeries, tf domain.Timeframe) domain.RegressionResult {
	return Regress(series.Closes(tf.Lookback))
}

// GlobalRegression fits the whole reference window.
func GlobalRegression(series domain.TimeSeries) domain.RegressionResult {
	return Regress(series.Closes(0))
}
