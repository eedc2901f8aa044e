package sales

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

const smoothingWindow = 3

// ComputeKPI produces summary statistics for a single product within
// the subset. Total, Average, and Max cover the product's raw record
// values; the smoothed series is a window-3 rolling mean over the
// product's trend series at the given granularity. An empty subset for
// the product yields zero-valued KPIs, not an error.
func ComputeKPI(subset []SalesRecord, product string, g Granularity) ProductKPI {
	kpi := ProductKPI{Product: product}

	for _, r := range subset {
		if r.Product != product {
			continue
		}
		kpi.Total += r.Amount
		if kpi.Count == 0 || r.Amount > kpi.Max {
			kpi.Max = r.Amount
		}
		kpi.Count++
	}
	if kpi.Count > 0 {
		kpi.Average = kpi.Total / float64(kpi.Count)
	}

	own := make([]SalesRecord, 0, kpi.Count)
	for _, r := range subset {
		if r.Product == product {
			own = append(own, r)
		}
	}
	kpi.Smoothed = RollingMean(Aggregate(own, g), smoothingWindow)

	return kpi
}

// ComputeKPIs computes KPIs for every product present in the subset,
// fanning out one goroutine per product. Products are returned in
// sorted order. Each product's computation reads only the shared
// immutable subset, so the workers share no writable state.
func ComputeKPIs(ctx context.Context, subset []SalesRecord, g Granularity) ([]ProductKPI, error) {
	seen := make(map[string]struct{})
	var products []string
	for _, r := range subset {
		if _, ok := seen[r.Product]; !ok {
			seen[r.Product] = struct{}{}
			products = append(products, r.Product)
		}
	}
	sort.Strings(products)

	// Each goroutine writes a distinct index, so no locking is needed.
	kpis := make([]ProductKPI, len(products))

	group, ctx := errgroup.WithContext(ctx)
	for i, product := range products {
		i, product := i, product
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			kpis[i] = ComputeKPI(subset, product, g)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return kpis, nil
}

// RollingMean computes a simple moving average over the series. The
// first window-1 positions have no defined value and are omitted, so
// the result has length max(0, len(series)-window+1).
func RollingMean(series TimeSeries, window int) TimeSeries {
	if window <= 0 || len(series) < window {
		return nil
	}

	smoothed := make(TimeSeries, 0, len(series)-window+1)
	var sum float64
	for i, p := range series {
		sum += p.Value
		if i >= window {
			sum -= series[i-window].Value
		}
		if i >= window-1 {
			smoothed = append(smoothed, Point{
				Date:  p.Date,
				Value: sum / float64(window),
			})
		}
	}
	return smoothed
}
