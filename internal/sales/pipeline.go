package sales

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptySelection signals that the filter criteria matched zero
// records. It short-circuits the pipeline before aggregation, KPIs,
// and forecasting run, and is surfaced to the presentation layer as a
// "no data" state rather than a failure.
var ErrEmptySelection = errors.New("no records match the selection")

// Snapshot is the full output bundle of one pipeline run.
type Snapshot struct {
	Criteria FilterCriteria        `json:"criteria"`
	Subset   []SalesRecord         `json:"subset"`
	KPIs     []ProductKPI          `json:"kpis"`
	Trend    map[string]TimeSeries `json:"trend"`
	Forecast ForecastResult        `json:"forecast"`
}

// Compute runs the full pipeline for one selection: filter, per-product
// trend aggregation, KPIs, and a monthly forecast over the pooled
// subset. It is a pure function of records and criteria, so identical
// inputs always produce identical snapshots.
func Compute(ctx context.Context, records []SalesRecord, criteria FilterCriteria, horizonMonths int) (*Snapshot, error) {
	subset := Filter(records, criteria)
	if len(subset) == 0 {
		return nil, ErrEmptySelection
	}

	kpis, err := ComputeKPIs(ctx, subset, criteria.Granularity)
	if err != nil {
		return nil, fmt.Errorf("computing KPIs: %w", err)
	}

	monthly := Aggregate(subset, Monthly)

	return &Snapshot{
		Criteria: criteria,
		Subset:   subset,
		KPIs:     kpis,
		Trend:    AggregateByProduct(subset, criteria.Granularity),
		Forecast: Forecast(monthly, horizonMonths),
	}, nil
}
