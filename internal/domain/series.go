package domain

import (
	"sort"
	"time"
)

// PricePoint is a single OHLCV sample.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// DataSource tags where a series came from.
type DataSource string

const (
	SourceCoinGecko DataSource = "coingecko"
	SourceYahoo     DataSource = "yahoo"
	SourceCache     DataSource = "cache"
)

func (s DataSource) IsValid() bool {
	switch s {
	case SourceCoinGecko, SourceYahoo, SourceCache:
		return true
	}
	return false
}

// TimeSeries is strictly ascending by timestamp with no duplicates and no
// points with a non-positive close. Build it with NewTimeSeries.
type TimeSeries struct {
	Symbol   string       `json:"symbol"`
	Source   DataSource   `json:"source"`
	Interval Interval     `json:"interval"`
	Points   []PricePoint `json:"points"`
}

// NewTimeSeries sorts the points, drops those with close <= 0 and keeps the
// last point seen for any repeated timestamp.
func NewTimeSeries(symbol string, source DataSource, interval Interval, points []PricePoint) TimeSeries {
	valid := make([]PricePoint, 0, len(points))
	for _, p := range points {
		if p.Close > 0 && !p.Timestamp.IsZero() {
			valid = append(valid, p)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Timestamp.Before(valid[j].Timestamp) })

	out := valid[:0]
	for _, p := range valid {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(p.Timestamp) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}

	return TimeSeries{
		Symbol:   symbol,
		Source:   source,
		Interval: interval,
		Points:   out,
	}
}

func (s TimeSeries) Len() int { return len(s.Points) }

// Last returns the most recent point.
func (s TimeSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Closes returns the closing prices of the trailing n points (all when n <= 0).
func (s TimeSeries) Closes(n int) []float64 {
	pts := s.Points
	if n > 0 && len(pts) > n {
		pts = pts[len(pts)-n:]
	}
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Close
	}
	return out
}

// Since returns the points at or after cutoff.
func (s TimeSeries) Since(cutoff time.Time) []PricePoint {
	idx := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Timestamp.Before(cutoff)
	})
	return s.Points[idx:]
}

// WithSource returns a copy of s retagged with source. Points are shared.
func (s TimeSeries) WithSource(source DataSource) TimeSeries {
	s.Source = source
	return s
}
