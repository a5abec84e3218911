package domain

import (
	"fmt"
	"strings"
	"time"
)

// Interval is the point-to-point spacing of a series.
type Interval string

const (
	Interval5m Interval = "5m"
	Interval1h Interval = "1h"
	Interval4h Interval = "4h"
	Interval1d Interval = "1d"
)

func (i Interval) Duration() time.Duration {
	switch i {
	case Interval5m:
		return 5 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

type TimeframeKey string

const (
	Timeframe1D TimeframeKey = "1D"
	Timeframe1W TimeframeKey = "1W"
	Timeframe1M TimeframeKey = "1M"
	Timeframe3M TimeframeKey = "3M"
)

// Timeframe is one row of the display timeframe table.
//
// LocalWeight is the share of the short-window slope kept when blending with
// the global reference slope. The values are hand-tuned and preserved as-is;
// the longest timeframe carries 1.0 because it is the global reference.
type Timeframe struct {
	Key              TimeframeKey `json:"key"`
	Label            string       `json:"label"`
	Interval         Interval     `json:"interval"`
	Lookback         int          `json:"lookback"`
	ProjectionPoints int          `json:"projection_points"`
	LocalWeight      float64      `json:"local_weight"`

	// Primary source window, in days of 24/7 history.
	CoinGeckoDays int `json:"-"`
	// Secondary source chart range and native bar size. Bars are resampled
	// to Interval when the provider has no native bar of that size.
	YahooRange    string `json:"-"`
	YahooInterval string `json:"-"`
}

//	key  interval  lookback  points  local/global
//	1D   5m        48        12      30% / 70%
//	1W   1h        48        12      50% / 50%
//	1M   4h        42        12      70% / 30%
//	3M   1d        90        14      100% / 0%  (global reference)
var Timeframes = []Timeframe{
	{
		Key: Timeframe1D, Label: "1 Day", Interval: Interval5m,
		Lookback: 48, ProjectionPoints: 12, LocalWeight: 0.3,
		CoinGeckoDays: 1, YahooRange: "1d", YahooInterval: "5m",
	},
	{
		Key: Timeframe1W, Label: "1 Week", Interval: Interval1h,
		Lookback: 48, ProjectionPoints: 12, LocalWeight: 0.5,
		CoinGeckoDays: 7, YahooRange: "5d", YahooInterval: "1h",
	},
	{
		Key: Timeframe1M, Label: "1 Month", Interval: Interval4h,
		Lookback: 42, ProjectionPoints: 12, LocalWeight: 0.7,
		CoinGeckoDays: 30, YahooRange: "1mo", YahooInterval: "1h",
	},
	{
		Key: Timeframe3M, Label: "3 Months", Interval: Interval1d,
		Lookback: 90, ProjectionPoints: 14, LocalWeight: 1.0,
		CoinGeckoDays: 90, YahooRange: "3mo", YahooInterval: "1d",
	},
}

// GlobalReferenceTimeframe is the longest window; its regression is the
// global slope every other timeframe blends against.
const GlobalReferenceTimeframe = Timeframe3M

// QuickStatsTimeframe is the trailing window quick stats are computed over,
// independent of the chart's active timeframe.
const QuickStatsTimeframe = Timeframe1W

// DefaultTimeframe is what a new chart shows before the user picks one.
const DefaultTimeframe = Timeframe1D

// LookupTimeframe resolves a key case-insensitively.
func LookupTimeframe(key string) (Timeframe, error) {
	k := TimeframeKey(strings.ToUpper(strings.TrimSpace(key)))
	for _, tf := range Timeframes {
		if tf.Key == k {
			return tf, nil
		}
	}
	return Timeframe{}, fmt.Errorf("unsupported timeframe: %q", key)
}

// MustTimeframe is LookupTimeframe for keys known at compile time.
func MustTimeframe(key TimeframeKey) Timeframe {
	tf, err := LookupTimeframe(string(key))
	if err != nil {
		panic(err)
	}
	return tf
}

// TimeframeKeys lists the supported keys in display order.
func TimeframeKeys() []string {
	out := make([]string, len(Timeframes))
	for i, tf := range Timeframes {
		out[i] = string(tf.Key)
	}
	return out
}
