package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
	"github.com/mixmint/mixmint-downloads/internal/api/middleware"
	"github.com/mixmint/mixmint-downloads/internal/api/server"
	"github.com/mixmint/mixmint-downloads/internal/blob"
	"github.com/mixmint/mixmint-downloads/internal/config"
	"github.com/mixmint/mixmint-downloads/internal/download"
	"github.com/mixmint/mixmint-downloads/internal/emitter"
	"github.com/mixmint/mixmint-downloads/internal/entitlement"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/messaging"
	"github.com/mixmint/mixmint-downloads/internal/providers/jetstream"
	"github.com/mixmint/mixmint-downloads/internal/quota"
	"github.com/mixmint/mixmint-downloads/internal/ratelimit"
	"github.com/mixmint/mixmint-downloads/internal/settings"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Service:         "api-server",
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting MixMint download API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err),
			zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()

	// Initialize blob store
	blobStore, err := newBlobStore(cfg, jsonAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize blob store", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Initialized blob store",
		zap.String("backend", cfg.Blob.Backend),
		zap.String("bucket", cfg.Blob.Bucket),
	)

	// Connect to NATS when configured, events are dropped otherwise
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			MaxAge:         cfg.NATS.MaxAge,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		logger.InfoCtx(ctx, "Connected to NATS JetStream", zap.String("stream", cfg.NATS.StreamName))
	} else {
		publisher = messaging.NewNoopPublisher()
		logger.WarnCtx(ctx, "NATS URL not configured, download events will not be published")
	}

	eventEmitter := emitter.NewEmitter(publisher, emitter.Config{
		Workers:        cfg.Events.WorkerPoolSize,
		QueueSize:      cfg.Events.QueueSize,
		MaxElapsedTime: cfg.Events.RetryBudget,
		PublishTimeout: cfg.Events.PublishTimeout,
	}, clock)
	defer eventEmitter.Close()

	// Platform settings
	settingsProvider := settings.NewProvider(dataStore, clock, settings.Settings{
		TokenTTL:                   cfg.Settings.TokenTTL,
		MaxConcurrentDownloads:     cfg.Settings.MaxConcurrentDownloads,
		DownloadRateLimitPerMinute: cfg.Settings.DownloadRateLimitPerMinute,
	}, cfg.Settings.CacheTTL)

	// Download rate limiter
	redisClient, err := newRedisClient(cfg.Redis)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize Redis client", zap.Error(err))
	}
	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		RedisKeyPrefix:      cfg.RateLimit.RedisKeyPrefix,
		EnableLocalFallback: cfg.RateLimit.EnableLocalFallback,
		HealthCheckInterval: cfg.RateLimit.HealthCheckInterval,
	}, redisClient, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize rate limiter", zap.Error(err))
	}
	defer func() {
		if err := limiter.Close(); err != nil {
			logger.Error(err, zap.String("component", "rate_limiter"))
		}
	}()

	// Download service
	downloadService := download.NewService(
		download.Config{Bucket: cfg.Blob.Bucket},
		dataStore,
		entitlement.NewResolver(clock),
		quota.NewLedger(clock),
		blobStore,
		settingsProvider,
		eventEmitter,
		clock,
		nil,
	)

	// Create server config
	serverConfig := server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		TrustedProxies: cfg.Server.TrustedProxies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadSize:  cfg.Server.MaxUploadSize,
		Auth: middleware.AuthConfig{
			JWTSecret:    cfg.Auth.JWTSecret,
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			JWTAudience:  cfg.Auth.JWTAudience,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	srv := server.New(serverConfig, downloadService, settingsProvider, limiter)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}

// newBlobStore builds the configured blob store backend
func newBlobStore(cfg *config.APIConfig, jsonAdapter adapter.JSON) (blob.Store, error) {
	switch cfg.Blob.Backend {
	case config.BLOB_BACKEND_FILESYSTEM:
		return blob.NewFilesystemStore(cfg.Blob.RootDir, adapter.NewFileSystem(), jsonAdapter), nil
	case config.BLOB_BACKEND_CLOUDFLARE:
		client, err := adapter.NewCloudflareClient(cfg.Cloudflare.APIToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloudflare client: %w", err)
		}
		return blob.NewCloudflareStore(blob.CloudflareConfig{
			AccountID:  cfg.Cloudflare.AccountID,
			Namespaces: cfg.Cloudflare.KVNamespaces,
		}, client, jsonAdapter), nil
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.Blob.Backend)
	}
}

// newRedisClient returns nil when Redis is not configured
func newRedisClient(cfg config.RedisConfig) (adapter.RedisClient, error) {
	switch {
	case cfg.URL != "":
		return adapter.NewRedisClientFromURL(cfg.URL)
	case cfg.Addr != "":
		return adapter.NewRedisClient(cfg.Addr, cfg.Password, cfg.DB), nil
	default:
		return nil, nil
	}
}
