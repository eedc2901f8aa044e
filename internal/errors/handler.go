package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/go-chi/render"

	"salespulse/internal/infrastructure"
)

// ErrorHandler provides centralized error handling with RFC 7807 compliance
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger,
		includeStack: includeStack,
	}
}

// HandleError processes an error and writes an RFC 7807 response
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	problem := h.ErrorToProblem(ctx, err)
	problem.Instance = r.URL.Path
	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}

	logLevel := slog.LevelError
	if problem.Status < 500 {
		logLevel = slog.LevelWarn
	}
	h.logger.LogAttrs(ctx, logLevel, "request error",
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", problem.Status),
		slog.String("type", problem.Type),
		slog.String("error", err.Error()),
	)

	if renderErr := render.Render(w, r, problem); renderErr != nil {
		h.logger.ErrorContext(ctx, "failed to render error response",
			slog.String("error", renderErr.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ErrorToProblem converts any error to RFC 7807 problem details
func (h *ErrorHandler) ErrorToProblem(ctx context.Context, err error) *ProblemDetails {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr)
	}

	var problem *ProblemDetails
	if errors.As(err, &problem) {
		return problem
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process",
			"",
		)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeNotFound,
			"Resource Not Found",
			msg,
			"",
		)
	case strings.Contains(msg, "validation"):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Error",
			msg,
			"",
		)
	default:
		detail := "An unexpected error occurred"
		if h.includeStack {
			detail = msg
		}
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			detail,
			"",
		)
	}
}

// apiErrorToProblem maps an APIError to its RFC 7807 representation
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_PARAMETER", "INVALID_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "EMPTY_SELECTION":
		problemType = TypeEmptySelection
	case "DATASET_LOAD_FAILED":
		problemType = TypeDatasetLoad
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		apiErr.Message,
		"",
		"",
	)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and writes a 500 problem response
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	stack := getStackTrace()
	h.logger.LogAttrs(ctx, slog.LevelError, "panic recovered",
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("panic", recovered),
		slog.String("stack", stack),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	)
	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
	}

	if err := render.Render(w, r, problem); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// NotFound handles 404 errors for unmatched routes
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Resource Not Found",
		fmt.Sprintf("The requested resource %s was not found", r.URL.Path),
		r.URL.Path,
	)
	if err := render.Render(w, r, problem); err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
	}
}

// MethodNotAllowed handles 405 errors
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeValidation,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for %s", r.Method, r.URL.Path),
		r.URL.Path,
	)
	if err := render.Render(w, r, problem); err != nil {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func getStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
