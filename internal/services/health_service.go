package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"salespulse/internal/sales"
)

// HealthService reports process and dataset health.
type HealthService struct {
	version   string
	store     *sales.Store
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health check response body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Runtime   map[string]interface{} `json:"runtime"`
	Dataset   map[string]interface{} `json:"dataset"`
}

// NewHealthService creates a health service.
func NewHealthService(version string, store *sales.Store, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		startTime: time.Now(),
		logger:    logger,
	}
}

// Check returns the current health status. The service is degraded when
// the dataset loaded zero usable records.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := "healthy"
	if s.store.Len() == 0 {
		status = "degraded"
	}

	return &HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		},
		Dataset: map[string]interface{}{
			"records": s.store.Len(),
			"dropped": s.store.Dropped(),
		},
	}
}
