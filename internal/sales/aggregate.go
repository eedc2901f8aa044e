package sales

import (
	"sort"
	"time"
)

func unixDate(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// Aggregate buckets the subset by the given granularity, pooling all
// products into one per-bucket sum. Buckets with no records are not
// synthesized. The result is sorted ascending by bucket label.
func Aggregate(subset []SalesRecord, g Granularity) TimeSeries {
	buckets := make(map[int64]float64)
	for _, r := range subset {
		buckets[g.Bucket(r.Date).Unix()] += r.Amount
	}
	return sortedSeries(buckets)
}

// AggregateByProduct buckets the subset by granularity with one series
// per product.
func AggregateByProduct(subset []SalesRecord, g Granularity) map[string]TimeSeries {
	perProduct := make(map[string]map[int64]float64)
	for _, r := range subset {
		buckets, ok := perProduct[r.Product]
		if !ok {
			buckets = make(map[int64]float64)
			perProduct[r.Product] = buckets
		}
		buckets[g.Bucket(r.Date).Unix()] += r.Amount
	}

	result := make(map[string]TimeSeries, len(perProduct))
	for product, buckets := range perProduct {
		result[product] = sortedSeries(buckets)
	}
	return result
}

func sortedSeries(buckets map[int64]float64) TimeSeries {
	if len(buckets) == 0 {
		return nil
	}
	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	series := make(TimeSeries, 0, len(keys))
	for _, k := range keys {
		series = append(series, Point{Date: unixDate(k), Value: buckets[k]})
	}
	return series
}
