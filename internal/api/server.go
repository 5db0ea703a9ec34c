package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgerlink/internal/api/handlers"
	"ledgerlink/internal/api/middleware"
)

// Config holds API server configuration.
type Config struct {
	Address        string
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Address:        ":8080",
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	svc        handlers.RunService
}

// NewServer creates a new API server.
func NewServer(cfg Config, svc handlers.RunService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		svc:    svc,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	// Prometheus metrics
	s.router.Handle("/metrics", promhttp.Handler())

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		runsHandler := handlers.NewRunsHandler(s.svc)
		r.Post("/runs", runsHandler.Start)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Get("/runs/{id}/report", runsHandler.Report)
		r.Get("/runs/{id}/export", runsHandler.Export)

		statsHandler := handlers.NewStatsHandler(s.svc)
		r.Get("/stats", statsHandler.Get)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // runs are synchronous
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", s.config.Address)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
