package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/api/middleware"
	"github.com/mixmint/mixmint-downloads/internal/api/rest"
	"github.com/mixmint/mixmint-downloads/internal/download"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/metrics"
	"github.com/mixmint/mixmint-downloads/internal/ratelimit"
	"github.com/mixmint/mixmint-downloads/internal/settings"
)

// Config holds the server configuration
type Config struct {
	Debug          bool
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
	AllowedOrigins []string
	MaxUploadSize  int64
	Auth           middleware.AuthConfig
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	service    download.Service
	settings   settings.Provider
	limiter    ratelimit.Limiter
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, svc download.Service, provider settings.Provider, limiter ratelimit.Limiter) *Server {
	return &Server{
		config:   cfg,
		service:  svc,
		settings: provider,
		limiter:  limiter,
	}
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() (*gin.Engine, error) {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Client IPs are taken from X-Forwarded-For only when sent by a trusted proxy
	if err := router.SetTrustedProxies(s.config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS(s.config.AllowedOrigins))

	auth, err := middleware.NewAuthenticator(s.config.Auth)
	if err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}

	restHandler := rest.NewHandler(rest.HandlerConfig{MaxUploadSize: s.config.MaxUploadSize}, s.service, s.settings)
	rest.SetupRoutes(router, restHandler, auth, middleware.DownloadRateLimit(s.limiter, s.settings))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router, nil
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	router, err := s.Router()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
