package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/config"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/sales"
	"salespulse/internal/services"
)

func testRouter(t *testing.T) chi.Router {
	t.Helper()

	var records []sales.SalesRecord
	base := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		records = append(records, sales.SalesRecord{
			Date:    base.AddDate(0, i, 0),
			Region:  "East",
			Product: "Widget",
			Amount:  float64(100 + 10*i),
		})
	}
	store := sales.NewStore(records, 1)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := services.NewDashboardService(store, config.DashboardConfig{DefaultHorizon: 3, MaxHorizon: 24}, nil, logger)
	handler := NewDashboardHandler(service, logger, apierrors.NewErrorHandler(logger, false))
	health := NewHealthHandler(services.NewHealthService("test", store, logger), logger)

	r := chi.NewRouter()
	r.Mount("/api/dashboard", handler.Routes())
	r.Mount("/api/health", health.Routes())
	return r
}

func TestDashboardMeta(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/meta", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool          `json:"success"`
		Data    services.Meta `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.Equal(t, []string{"East"}, body.Data.Regions)
	assert.Equal(t, []string{"Widget"}, body.Data.Products)
	assert.Equal(t, 12, body.Data.Records)
	assert.Equal(t, 1, body.Data.Dropped)
}

func TestDashboardCompute(t *testing.T) {
	router := testRouter(t)

	payload := `{
		"region": "East",
		"products": ["Widget"],
		"start": "2023-01-01",
		"end": "2023-12-31",
		"granularity": "monthly"
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/compute", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			KPIs []sales.ProductKPI `json:"kpis"`
			Forecast struct {
				Insufficient bool          `json:"insufficient"`
				Predicted    []sales.Point `json:"predicted"`
			} `json:"forecast"`
			Subset int `json:"subset"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.Equal(t, 12, body.Data.Subset)
	require.Len(t, body.Data.KPIs, 1)
	assert.Equal(t, "Widget", body.Data.KPIs[0].Product)
	assert.False(t, body.Data.Forecast.Insufficient)
	assert.Len(t, body.Data.Forecast.Predicted, 15)
}

func TestDashboardComputeValidation(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		name       string
		payload    string
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing region",
			payload:    `{"products":["Widget"],"start":"2023-01-01","end":"2023-12-31"}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "empty products",
			payload:    `{"region":"East","products":[],"start":"2023-01-01","end":"2023-12-31"}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "bad date",
			payload:    `{"region":"East","products":["Widget"],"start":"January 1","end":"2023-12-31"}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "bad granularity",
			payload:    `{"region":"East","products":["Widget"],"start":"2023-01-01","end":"2023-12-31","granularity":"hourly"}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "malformed json",
			payload:    `{"region":`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "no matching records",
			payload:    `{"region":"South","products":["Widget"],"start":"2023-01-01","end":"2023-12-31"}`,
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeEmptySelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/dashboard/compute", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem["type"])
		})
	}
}

func TestDashboardExport(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/dashboard/export?region=East&products=Widget&start=2023-01-01&end=2023-12-31&format=csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "East_sales.csv")

	body := strings.TrimPrefix(rec.Body.String(), "\xEF\xBB\xBF")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Len(t, lines, 13) // header plus twelve rows
}

func TestDashboardExportErrors(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"missing region", "products=Widget&start=2023-01-01&end=2023-12-31", http.StatusBadRequest},
		{"missing products", "region=East&start=2023-01-01&end=2023-12-31", http.StatusBadRequest},
		{"bad format", "region=East&products=Widget&start=2023-01-01&end=2023-12-31&format=pdf", http.StatusBadRequest},
		{"empty selection", "region=South&products=Widget&start=2023-01-01&end=2023-12-31", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard/export?"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestDashboardExportExcel(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/dashboard/export?region=East&products=Widget&start=2023-01-01&end=2023-12-31&format=xlsx", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx payload should be a zip archive")
}

func TestHealthCheck(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "test", status.Version)
}
