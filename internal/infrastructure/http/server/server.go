// Package server provides the public suggestion API HTTP server
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/platewise/v2/internal/infrastructure/config"
	"github.com/platewise/v2/internal/infrastructure/http/handlers"
	"github.com/platewise/v2/internal/infrastructure/http/middleware"
	"github.com/platewise/v2/internal/ports/inbound"
)

// Server represents the suggestion API server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *chi.Mux
	server  *http.Server
	service inbound.SuggestionService
}

// NewServer creates a new API server instance with its full middleware
// chain wired.
func NewServer(cfg *config.Config, logger *zap.Logger, service inbound.SuggestionService) *Server {
	s := &Server{
		config:  cfg,
		logger:  logger.Named("api-server"),
		service: service,
	}

	s.router = s.setupRouter()

	var handler http.Handler = s.router
	if cfg.Monitoring.EnableTracing {
		handler = otelhttp.NewHandler(handler, "platewise-api")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	return s
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(middleware.CORS(s.config))
	r.Use(middleware.RateLimit(s.config.RateLimit))
	r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))

	if s.config.Monitoring.EnableMetrics {
		r.Use(middleware.Metrics())
	}
	if s.config.Server.EnableCompression {
		r.Use(middleware.Compress(6))
	}
	r.Use(middleware.JSONOnly())

	r.Get("/health", s.handleHealth)

	r.Route("/api/v2", func(r chi.Router) {
		s.setupSuggestionRoutes(r)
	})

	return r
}

// setupSuggestionRoutes configures the suggestion endpoints
func (s *Server) setupSuggestionRoutes(r chi.Router) {
	h := handlers.NewSuggestionHandlers(s.service, s.logger)

	r.Route("/suggestions", func(r chi.Router) {
		r.Post("/", h.GenerateSuggestions)
		r.Post("/random", h.GetRandomMeals)
		r.Get("/pantry", h.GetPantrySuggestions)
		r.Post("/feedback", h.RecordFeedback)
	})

	r.Get("/health", s.handleHealth)
}

// Start starts the HTTP server and blocks until it exits
func (s *Server) Start() error {
	if s.config.Server.EnableHTTP2 {
		if err := http2.ConfigureServer(s.server, nil); err != nil {
			s.logger.Error("Failed to configure HTTP/2", zap.Error(err))
		}
	}

	s.logger.Info("Starting suggestion API server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down suggestion API server")
	return s.server.Shutdown(ctx)
}

// handleHealth is the liveness probe. Dependency-aware readiness lives on
// the ops server.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"%s","version":"%s","timestamp":%d}`,
		s.config.App.Name, s.config.App.Version, time.Now().Unix())
}
