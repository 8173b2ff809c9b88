package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/metrics"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

// TokenCleanupSweeperConfig holds configuration for the token cleanup sweeper
type TokenCleanupSweeperConfig struct {
	Interval    time.Duration // Time to sleep between sweep cycles
	BatchSize   int           // Tokens deleted per statement
	GracePeriod time.Duration // Keep expired tokens this long after expiry
}

// tokenCleanupSweeper deletes expired download tokens
type tokenCleanupSweeper struct {
	config *TokenCleanupSweeperConfig
	store  store.Store
	clock  adapter.Clock

	mu  sync.Mutex
	run *sweepRun // nil while stopped
}

// sweepRun holds the channels of a single Start call
type sweepRun struct {
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewTokenCleanupSweeper creates a new token cleanup sweeper
func NewTokenCleanupSweeper(config *TokenCleanupSweeperConfig, st store.Store, clock adapter.Clock) Sweeper {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	return &tokenCleanupSweeper{
		config: config,
		store:  st,
		clock:  clock,
	}
}

// Name returns the sweeper's name
func (s *tokenCleanupSweeper) Name() string {
	return "token-cleanup-sweeper"
}

// Start runs sweep cycles until the context is canceled or Stop is called
func (s *tokenCleanupSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.run != nil {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	run := &sweepRun{
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.run = run
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.run = nil
		s.mu.Unlock()
		close(run.stopped)
	}()

	logger.InfoCtx(ctx, "Starting token cleanup sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
		zap.Duration("grace_period", s.config.GracePeriod),
	)

	for {
		if _, err := s.sweep(ctx, run.stop); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCtx(ctx, err)
		}

		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Token cleanup sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-run.stop:
			logger.InfoCtx(ctx, "Token cleanup sweeper stop requested")
			return nil
		case <-s.clock.After(s.config.Interval):
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *tokenCleanupSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping token cleanup sweeper")
	run.stopOnce.Do(func() { close(run.stop) })

	select {
	case <-run.stopped:
		logger.InfoCtx(ctx, "Token cleanup sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Token cleanup sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// RunOnce deletes expired tokens batch by batch until a batch comes back short
func (s *tokenCleanupSweeper) RunOnce(ctx context.Context) (int64, error) {
	return s.sweep(ctx, nil)
}

func (s *tokenCleanupSweeper) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil
}

// sweep runs one cycle, returning early once stop is closed
func (s *tokenCleanupSweeper) sweep(ctx context.Context, stop <-chan struct{}) (int64, error) {
	startTime := s.clock.Now()
	cutoff := startTime.Add(-s.config.GracePeriod)

	var total int64
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-stop:
			return total, nil
		default:
		}

		deleted, err := s.deleteBatchWithRetry(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to delete expired tokens: %w", err)
		}
		total += deleted
		metrics.RecordTokensSwept(deleted)

		if deleted < int64(s.config.BatchSize) {
			break
		}
	}

	logger.InfoCtx(ctx, "Sweep cycle completed",
		zap.Duration("duration", s.clock.Since(startTime)),
		zap.Int64("deleted", total),
		zap.Time("cutoff", cutoff),
	)

	return total, nil
}

// deleteBatchWithRetry retries a failed batch with exponential backoff
func (s *tokenCleanupSweeper) deleteBatchWithRetry(ctx context.Context, cutoff time.Time) (int64, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	var deleted int64
	operation := func() error {
		n, err := s.store.DeleteExpiredTokens(ctx, cutoff, s.config.BatchSize)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	}

	notifyOnError := func(err error, duration time.Duration) {
		logger.WarnCtx(ctx, "Expired token delete failed, retrying",
			zap.Error(err),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notifyOnError); err != nil {
		return 0, err
	}
	return deleted, nil
}
