// Package http wires the gin router and runs the API and metrics servers.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/filevault/internal/auth/http"
	filesHTTP "github.com/allisson/filevault/internal/files/http"
	"github.com/allisson/filevault/internal/metrics"
	quotaHTTP "github.com/allisson/filevault/internal/quota/http"
	vaultHTTP "github.com/allisson/filevault/internal/vault/http"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// Readiness lists the dependencies /ready checks.
type Readiness struct {
	Database PingFunc
	Storage  PingFunc
}

// RouterConfig carries the handlers and options SetupRouter wires.
type RouterConfig struct {
	FileHandler  *filesHTTP.FileHandler
	VaultHandler *vaultHTTP.VaultHandler
	QuotaHandler *quotaHTTP.QuotaHandler

	MetricsProvider  *metrics.Provider
	MetricsNamespace string

	CORSEnabled      bool
	CORSAllowOrigins string

	GateRateLimitEnabled bool
	GateRequestsPerSec   float64
	GateBurst            int
}

// Server is the public API server.
type Server struct {
	readiness Readiness
	router    *gin.Engine
	server    *http.Server
	logger    *slog.Logger
}

// NewServer creates a server; call SetupRouter before Start.
func NewServer(readiness *Readiness, host string, port int, logger *slog.Logger) *Server {
	s := &Server{
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
	if readiness != nil {
		s.readiness = *readiness
	}
	return s
}

// SetupRouter builds the gin engine. ctx bounds background work owned by the
// router, such as evicting idle rate limiters.
func (s *Server) SetupRouter(ctx context.Context, cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if cfg.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1", authHTTP.PrincipalMiddleware(s.logger))

	if h := cfg.FileHandler; h != nil {
		files := v1.Group("/files")
		files.POST("", h.UploadHandler)
		files.GET("", h.ListHandler)
		files.GET("/:id", h.GetHandler)
		files.GET("/:id/content", h.DownloadHandler)
		files.POST("/:id/verify", h.VerifyHandler)
		files.DELETE("/:id", h.DeleteHandler)
	}

	if h := cfg.VaultHandler; h != nil {
		vault := v1.Group("/vault")
		vault.POST("", h.PromoteHandler)
		vault.GET("/capabilities/:token/content", h.ContentHandler)
		vault.GET("/:id", h.GetHandler)
		vault.DELETE("/:id", h.RemoveHandler)

		gate := []gin.HandlerFunc{h.AccessHandler}
		if cfg.GateRateLimitEnabled {
			limiter := authHTTP.RateLimitMiddleware(ctx, cfg.GateRequestsPerSec, cfg.GateBurst, s.logger)
			gate = append([]gin.HandlerFunc{limiter}, gate...)
		}
		vault.POST("/:id/access", gate...)
	}

	if h := cfg.QuotaHandler; h != nil {
		v1.GET("/quota", h.GetHandler)
	}

	s.router = router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("router not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// GetHandler returns the router, or nil before SetupRouter.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		return nil
	}
	return s.router
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports not_ready when any dependency is missing or fails its ping.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{
		"database": s.check(ctx, "database", s.readiness.Database),
		"storage":  s.check(ctx, "storage", s.readiness.Storage),
	}

	status, code := "ready", http.StatusOK
	for _, v := range components {
		if v != "ok" {
			status, code = "not_ready", http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, gin.H{"status": status, "components": components})
}

func (s *Server) check(ctx context.Context, name string, ping PingFunc) string {
	if ping == nil {
		return "error"
	}
	if err := ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.String("component", name), slog.Any("error", err))
		return "error"
	}
	return "ok"
}
