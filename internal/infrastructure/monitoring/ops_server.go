package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/platewise/v2/internal/infrastructure/config"
	"github.com/platewise/v2/internal/ports/outbound"
	"github.com/platewise/v2/pkg/healthcheck"
)

// OpsServer serves the operational endpoints on a port separate from the
// public API: prometheus metrics, health probes, and config
// introspection. Keeping them off the API listener means the ingress
// never has to route-filter internals.
type OpsServer struct {
	config    *config.Config
	logger    *zap.Logger
	health    *healthcheck.HealthCheck
	algConfig outbound.AlgorithmConfigProvider
	server    *http.Server
}

// NewOpsServer builds the ops listener from the Ops config section.
func NewOpsServer(
	cfg *config.Config,
	logger *zap.Logger,
	health *healthcheck.HealthCheck,
	algConfig outbound.AlgorithmConfigProvider,
) *OpsServer {
	s := &OpsServer{
		config:    cfg,
		logger:    logger.Named("ops-server"),
		health:    health,
		algConfig: algConfig,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Ops.Host, cfg.Ops.Port),
		Handler:           s.setupRouter(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *OpsServer) setupRouter() *gin.Engine {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if s.config.Monitoring.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/health", s.health.Handler())
	router.GET("/health/live", s.health.LivenessHandler())
	router.GET("/health/ready", s.health.ReadinessHandler())

	// The algorithm snapshot carries no secrets, but exposing tuning
	// knobs is still opt-in outside development.
	if s.config.Ops.EnableDebugConfig {
		router.GET("/debug/config", s.handleDebugConfig)
	}

	return router
}

func (s *OpsServer) handleDebugConfig(c *gin.Context) {
	snapshot := s.algConfig.GetAlgorithmConfig()
	c.JSON(http.StatusOK, gin.H{
		"algorithm": snapshot,
		"app": gin.H{
			"name":        s.config.App.Name,
			"version":     s.config.App.Version,
			"environment": s.config.App.Environment,
		},
	})
}

// Start blocks on the listener until shutdown or failure.
func (s *OpsServer) Start() error {
	s.logger.Info("Starting ops server",
		zap.String("address", s.server.Addr),
		zap.Bool("metrics", s.config.Monitoring.EnableMetrics),
		zap.Bool("debug_config", s.config.Ops.EnableDebugConfig),
	)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight scrapes and probes.
func (s *OpsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down ops server")
	return s.server.Shutdown(ctx)
}
