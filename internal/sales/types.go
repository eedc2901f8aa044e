// Package sales implements the dashboard's data pipeline: filtering,
// time-bucket aggregation, rolling KPIs, and monthly forecasting with
// confidence bounds. All operations are pure functions over immutable
// inputs; the loaded Store is never mutated after construction.
package sales

import (
	"fmt"
	"time"
)

// SalesRecord is a single row of the source dataset.
type SalesRecord struct {
	Date    time.Time `json:"date"`
	Region  string    `json:"region"`
	Product string    `json:"product"`
	Amount  float64   `json:"amount"`
}

// Granularity selects the bucket size for time-series aggregation.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity converts a string to a Granularity, defaulting to
// Daily for an empty value.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Daily, Weekly, Monthly:
		return Granularity(s), nil
	case "":
		return Daily, nil
	default:
		return "", fmt.Errorf("invalid granularity %q", s)
	}
}

// Bucket maps a timestamp to its canonical bucket label. Daily buckets
// are the day itself at UTC midnight. Weekly and monthly buckets are
// labeled by the period END (Sunday of the ISO week, last day of the
// calendar month) so that a bucket's label never precedes any of the
// timestamps it contains.
func (g Granularity) Bucket(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case Weekly:
		// Days since Monday; Sunday closes the ISO week.
		offset := (int(t.Weekday()) + 6) % 7
		sunday := t.AddDate(0, 0, 6-offset)
		return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Point is one (timestamp, value) pair of a TimeSeries.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TimeSeries is an ordered sequence of points with strictly increasing
// timestamps and no duplicates.
type TimeSeries []Point

// Total returns the sum of all values in the series.
func (ts TimeSeries) Total() float64 {
	var sum float64
	for _, p := range ts {
		sum += p.Value
	}
	return sum
}

// FilterCriteria describes one dashboard selection: exactly one region,
// a non-empty product set, and an inclusive date range.
type FilterCriteria struct {
	Region      string      `json:"region"`
	Products    []string    `json:"products"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}

// ProductKPI holds per-product summary statistics over the filtered
// subset plus a window-3 rolling mean of the aggregated trend series.
type ProductKPI struct {
	Product  string     `json:"product"`
	Total    float64    `json:"total"`
	Average  float64    `json:"average"`
	Max      float64    `json:"max"`
	Count    int        `json:"count"`
	Smoothed TimeSeries `json:"smoothed"`
}

// ForecastResult carries either a full forecast or the Insufficient
// fallback. When Insufficient is true only Actual is populated and the
// caller renders the raw series as a plain trend line.
type ForecastResult struct {
	Insufficient bool       `json:"insufficient"`
	Actual       TimeSeries `json:"actual"`
	Predicted    TimeSeries `json:"predicted,omitempty"`
	Upper        TimeSeries `json:"upper,omitempty"`
	Lower        TimeSeries `json:"lower,omitempty"`
}
