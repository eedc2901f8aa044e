// Package services holds the business logic between the HTTP transport
// and the sales pipeline.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"salespulse/internal/config"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/infrastructure"
	"salespulse/internal/sales"
)

// DashboardService runs the pipeline against the immutable store and
// encodes exports. It is safe for concurrent use: the store is read
// only and every computation is a pure function of its inputs.
type DashboardService struct {
	store   *sales.Store
	cfg     config.DashboardConfig
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(store *sales.Store, cfg config.DashboardConfig, metrics *infrastructure.Metrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &DashboardService{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
	if metrics != nil {
		metrics.RecordsLoaded.Set(float64(store.Len()))
		metrics.RecordsDropped.Add(float64(store.Dropped()))
	}
	return svc
}

// Meta describes the loaded dataset so the UI can populate its filter
// widgets.
type Meta struct {
	Regions  []string  `json:"regions"`
	Products []string  `json:"products"`
	MinDate  time.Time `json:"min_date"`
	MaxDate  time.Time `json:"max_date"`
	Records  int       `json:"records"`
	Dropped  int       `json:"dropped"`
}

// Meta returns dataset metadata for filter widgets.
func (s *DashboardService) Meta(ctx context.Context) *Meta {
	minDate, maxDate := s.store.DateRange()
	return &Meta{
		Regions:  s.store.Regions(),
		Products: s.store.Products(),
		MinDate:  minDate,
		MaxDate:  maxDate,
		Records:  s.store.Len(),
		Dropped:  s.store.Dropped(),
	}
}

// normalizeHorizon applies the configured default and bounds.
func (s *DashboardService) normalizeHorizon(horizon int) (int, error) {
	if horizon == 0 {
		horizon = s.cfg.DefaultHorizon
	}
	if horizon < 1 || horizon > s.cfg.MaxHorizon {
		return 0, apierrors.ErrValidation("horizon",
			fmt.Sprintf("must be between 1 and %d months", s.cfg.MaxHorizon))
	}
	return horizon, nil
}

// Compute runs the full pipeline for one selection. An empty selection
// is returned as sales.ErrEmptySelection for the transport layer to
// map to its "no data" response.
func (s *DashboardService) Compute(ctx context.Context, criteria sales.FilterCriteria, horizon int) (*sales.Snapshot, error) {
	horizon, err := s.normalizeHorizon(horizon)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	snapshot, err := sales.Compute(ctx, s.store.Records(), criteria, horizon)
	if s.metrics != nil {
		s.metrics.ComputeDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if err == sales.ErrEmptySelection {
			if s.metrics != nil {
				s.metrics.EmptySelections.Inc()
			}
			s.logger.InfoContext(ctx, "empty selection",
				slog.String("region", criteria.Region),
				slog.Int("products", len(criteria.Products)))
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ComputeTotal.Inc()
	}

	s.logger.InfoContext(ctx, "pipeline computed",
		slog.String("region", criteria.Region),
		slog.String("granularity", string(criteria.Granularity)),
		slog.Int("subset", len(snapshot.Subset)),
		slog.Int("kpis", len(snapshot.KPIs)),
		slog.Bool("forecast_insufficient", snapshot.Forecast.Insufficient),
		slog.Duration("duration", time.Since(start)))

	return snapshot, nil
}

// Export filters the store with the criteria and streams the subset in
// the requested format. It returns the suggested download filename.
func (s *DashboardService) Export(ctx context.Context, w io.Writer, criteria sales.FilterCriteria, format exporter.Format) (string, error) {
	subset := sales.Filter(s.store.Records(), criteria)
	if len(subset) == 0 {
		return "", sales.ErrEmptySelection
	}

	if err := exporter.Write(w, subset, format); err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}

	s.logger.InfoContext(ctx, "subset exported",
		slog.String("region", criteria.Region),
		slog.String("format", string(format)),
		slog.Int("rows", len(subset)))

	return exporter.Filename(criteria.Region, format), nil
}
