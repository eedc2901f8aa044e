// Package http provides the HTTP transport layer for the dashboard.
package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/sales"
	"salespulse/internal/services"
)

// DashboardHandler serves dataset metadata, pipeline computations, and
// subset exports.
type DashboardHandler struct {
	service      *services.DashboardService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validator    *validator.Validate
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(service *services.DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		service:      service,
		logger:       logger,
		errorHandler: errorHandler,
		validator:    validator.New(),
	}
}

// Routes returns the router for dashboard endpoints
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/meta", h.Meta)
	r.Post("/compute", h.Compute)
	r.Get("/export", h.Export)
	return r
}

// Meta handles GET /api/dashboard/meta
func (h *DashboardHandler) Meta(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"data":    h.service.Meta(r.Context()),
	})
}

// ComputeRequest is the body of POST /api/dashboard/compute.
type ComputeRequest struct {
	Region        string   `json:"region" validate:"required"`
	Products      []string `json:"products" validate:"required,min=1,dive,required"`
	Start         string   `json:"start" validate:"required"`
	End           string   `json:"end" validate:"required"`
	Granularity   string   `json:"granularity" validate:"omitempty,oneof=daily weekly monthly"`
	HorizonMonths int      `json:"horizon_months" validate:"omitempty,min=1,max=24"`
}

const dateLayout = "2006-01-02"

// criteria converts the request into pipeline filter criteria.
func (req *ComputeRequest) criteria() (sales.FilterCriteria, error) {
	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		return sales.FilterCriteria{}, apierrors.ErrValidation("start", "must be a date in YYYY-MM-DD form")
	}
	end, err := time.Parse(dateLayout, req.End)
	if err != nil {
		return sales.FilterCriteria{}, apierrors.ErrValidation("end", "must be a date in YYYY-MM-DD form")
	}
	granularity, err := sales.ParseGranularity(req.Granularity)
	if err != nil {
		return sales.FilterCriteria{}, apierrors.ErrValidation("granularity", "must be daily, weekly, or monthly")
	}

	return sales.FilterCriteria{
		Region:      req.Region,
		Products:    req.Products,
		Start:       start.UTC(),
		End:         end.UTC(),
		Granularity: granularity,
	}, nil
}

// Compute handles POST /api/dashboard/compute
func (h *DashboardHandler) Compute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ComputeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, validationError(err))
		return
	}

	criteria, err := req.criteria()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	snapshot, err := h.service.Compute(ctx, criteria, req.HorizonMonths)
	if err != nil {
		if errors.Is(err, sales.ErrEmptySelection) {
			h.errorHandler.HandleError(w, r, apierrors.EmptySelectionError(criteria.Region))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"kpis":     snapshot.KPIs,
			"trend":    snapshot.Trend,
			"forecast": snapshot.Forecast,
			"subset":   len(snapshot.Subset),
		},
	})
}

// Export handles GET /api/dashboard/export
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	criteria, err := exportCriteria(q.Get("region"), q.Get("products"), q.Get("start"), q.Get("end"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	format, err := exporter.ParseFormat(q.Get("format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "must be csv or xlsx"))
		return
	}

	// Buffer the encoding so an empty selection can still produce a
	// proper error response instead of a truncated download.
	var buf bytes.Buffer
	name, err := h.service.Export(ctx, &buf, criteria, format)
	if err != nil {
		if errors.Is(err, sales.ErrEmptySelection) {
			h.errorHandler.HandleError(w, r, apierrors.EmptySelectionError(criteria.Region))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.ErrorContext(ctx, "writing export response",
			slog.String("error", err.Error()))
	}
}

// exportCriteria parses the export query parameters. Products arrive as
// a comma-separated list.
func exportCriteria(region, products, start, end string) (sales.FilterCriteria, error) {
	if region == "" {
		return sales.FilterCriteria{}, apierrors.ErrValidation("region", "is required")
	}

	var productList []string
	for _, p := range strings.Split(products, ",") {
		if p = strings.TrimSpace(p); p != "" {
			productList = append(productList, p)
		}
	}
	if len(productList) == 0 {
		return sales.FilterCriteria{}, apierrors.ErrValidation("products", "at least one product is required")
	}

	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return sales.FilterCriteria{}, apierrors.ErrValidation("start", "must be a date in YYYY-MM-DD form")
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		return sales.FilterCriteria{}, apierrors.ErrValidation("end", "must be a date in YYYY-MM-DD form")
	}

	return sales.FilterCriteria{
		Region:   region,
		Products: productList,
		Start:    startDate.UTC(),
		End:      endDate.UTC(),
	}, nil
}

// validationError converts validator.ValidationErrors into field-level
// API errors.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed %s validation", fe.Tag()),
		})
	}
	return apierrors.NewValidationErrors(fields)
}

