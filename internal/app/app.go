// Package app wires configuration, the dataset store, services, and
// the HTTP router into a runnable server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"salespulse/internal/config"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/infrastructure"
	customMiddleware "salespulse/internal/middleware"
	"salespulse/internal/sales"
	"salespulse/internal/services"
	handlers "salespulse/internal/transport/http"
)

const (
	Version = "1.0.0"
	AppName = "SalesPulse"
)

// Application is the main dependency container.
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Router    *chi.Mux
	Server    *http.Server
	Store     *sales.Store
	Metrics   *infrastructure.Metrics
	Dashboard *services.DashboardService
	Health    *services.HealthService
	Logger    *slog.Logger
}

// NewApplication builds the full application from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	paths, err := config.GetPaths(cfg.Dataset.File)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	store, err := LoadStore(cfg.Dataset, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	logger.Info("dataset loaded",
		slog.String("file", paths.DatasetFile),
		slog.Int("records", store.Len()),
		slog.Int("dropped", store.Dropped()))

	app := &Application{
		Config:  cfg,
		Paths:   paths,
		Store:   store,
		Metrics: infrastructure.NewMetrics(),
		Logger:  logger,
	}

	app.buildServices()
	app.setupRouter()

	app.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        app.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return app, nil
}

// buildServices constructs the service layer from the loaded store.
func (a *Application) buildServices() {
	a.Dashboard = services.NewDashboardService(a.Store, a.Config.Dashboard, a.Metrics, a.Logger)
	a.Health = services.NewHealthService(Version, a.Store, a.Logger)
}

// LoadStore reads the dataset, choosing the loader by file extension.
func LoadStore(cfg config.DatasetConfig, paths *config.Paths) (*sales.Store, error) {
	if strings.EqualFold(filepath.Ext(paths.DatasetFile), ".xlsx") {
		return sales.LoadExcel(paths.DatasetFile, cfg.SheetName)
	}
	return sales.LoadCSV(paths.DatasetFile)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		r.Route("/api", func(r chi.Router) {
			// Registered before the mounts so the handlers propagate
			// into the mounted subrouters.
			r.NotFound(errorHandler.NotFound)
			r.MethodNotAllowed(errorHandler.MethodNotAllowed)

			r.Mount("/health", handlers.NewHealthHandler(a.Health, a.Logger).Routes())
			r.Mount("/dashboard", handlers.NewDashboardHandler(a.Dashboard, a.Logger, errorHandler).Routes())
		})
	})

	// Outside the middleware group so scrapes stay cheap.
	r.Handle("/metrics", a.Metrics.Handler())

	a.Router = r
}

// Run starts the server and blocks until the context is cancelled or a
// termination signal arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	infrastructure.CloseLogFile()
	return nil
}
