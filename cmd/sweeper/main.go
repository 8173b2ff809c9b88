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
	"github.com/mixmint/mixmint-downloads/internal/config"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/store"
	"github.com/mixmint/mixmint-downloads/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	once       = flag.Bool("once", false, "Run a single cleanup cycle and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSweeperConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Service:         "sweeper",
		Tags: map[string]string{
			"service": "sweeper",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Sweeper")

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

	// Initialize clock adapter
	clock := adapter.NewClock()

	// Initialize token cleanup sweeper
	cleanupConfig := &sweeper.TokenCleanupSweeperConfig{
		Interval:    cfg.TokenCleanupSweeper.Interval,
		BatchSize:   cfg.TokenCleanupSweeper.BatchSize,
		GracePeriod: cfg.TokenCleanupSweeper.GracePeriod,
	}
	tokenSweeper := sweeper.NewTokenCleanupSweeper(cleanupConfig, dataStore, clock)

	logger.InfoCtx(ctx, "Initialized token cleanup sweeper",
		zap.Duration("interval", cleanupConfig.Interval),
		zap.Int("batch_size", cleanupConfig.BatchSize),
		zap.Duration("grace_period", cleanupConfig.GracePeriod),
	)

	if *once {
		if err := sweeper.RunOnce(ctx, tokenSweeper); err != nil {
			logger.FatalCtx(ctx, "Cleanup cycle failed", zap.Error(err))
		}
		return
	}

	// Cancel the sweepers on interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := sweeper.Run(ctx, 2*time.Second, tokenSweeper); err != nil {
		logger.Error(err, zap.String("component", "sweeper"))
	}

	logger.Info("Sweeper stopped")
}
