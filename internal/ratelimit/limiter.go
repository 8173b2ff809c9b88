package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/metrics"
)

const (
	BackendRedis = "redis"
	BackendLocal = "local"
)

// Config holds the download rate limiter configuration
type Config struct {
	// RedisKeyPrefix namespaces limiter keys in Redis
	RedisKeyPrefix string
	// EnableLocalFallback serves from in-process limiters while Redis is down
	EnableLocalFallback bool
	// HealthCheckInterval is how often Redis availability is re-checked
	HealthCheckInterval time.Duration
	// IdleTTL is how long an unused local limiter is kept
	IdleTTL time.Duration
}

// Result is the outcome of one rate limit check
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Backend    string
}

// Limiter is a non-blocking per-key rate limiter
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit.go -package=mocks -mock_names=Limiter=MockRateLimiter
type Limiter interface {
	// Allow records one event for key against a budget of perMinute events per minute
	Allow(ctx context.Context, key string, perMinute int) (Result, error)
	// Close stops the health monitor and closes the Redis connection
	Close() error
}

type limiter struct {
	config         Config
	redis          adapter.RedisClient
	distributed    adapter.RedisRateLimiter
	clock          adapter.Clock
	redisAvailable atomic.Bool
	closed         atomic.Bool
	closeOnce      sync.Once
	stopCh         chan struct{}

	mu    sync.Mutex
	local map[string]*localEntry
}

type localEntry struct {
	limiter   *rate.Limiter
	perMinute int
	lastSeen  time.Time
}

// NewLimiter creates a download rate limiter. rc may be nil, in which case only
// local limiters are used.
func NewLimiter(cfg Config, rc adapter.RedisClient, clock adapter.Clock) (Limiter, error) {
	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "mixmint:ratelimit:"
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 10 * time.Second
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}

	l := &limiter{
		config: cfg,
		redis:  rc,
		clock:  clock,
		stopCh: make(chan struct{}),
		local:  make(map[string]*localEntry),
	}

	if rc == nil {
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis client is required when local fallback is disabled")
		}
		logger.Info("Download rate limiter running without Redis, using local limiters")
		go l.monitor()
		return l, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisAvailable := true
	if err := rc.Ping(ctx).Err(); err != nil {
		redisAvailable = false
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("Redis unavailable, will use local fallback", zap.Error(err))
	}

	l.distributed = rc.NewRateLimiter()
	l.redisAvailable.Store(redisAvailable)

	go l.monitor()

	return l, nil
}

// Allow checks the distributed limiter first and falls back to a local limiter
func (l *limiter) Allow(ctx context.Context, key string, perMinute int) (Result, error) {
	if l.closed.Load() {
		return Result{}, fmt.Errorf("rate limiter is closed")
	}
	if perMinute <= 0 {
		return Result{}, fmt.Errorf("rate limit must be positive")
	}

	if l.distributed != nil && l.redisAvailable.Load() {
		res, err := l.distributed.Allow(ctx, l.config.RedisKeyPrefix+key, redis_rate.PerMinute(perMinute))
		if err == nil {
			result := Result{
				Allowed:    res.Allowed > 0,
				Remaining:  res.Remaining,
				RetryAfter: res.RetryAfter,
				Backend:    BackendRedis,
			}
			if !result.Allowed {
				metrics.RecordRateLimited(BackendRedis)
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		l.redisAvailable.Store(false)
		if !l.config.EnableLocalFallback {
			return Result{}, fmt.Errorf("redis rate limiter unavailable: %w", err)
		}
		logger.Warn("Redis rate limiter error, falling back to local", zap.Error(err))
	}

	if !l.config.EnableLocalFallback {
		return Result{}, fmt.Errorf("redis rate limiter unavailable")
	}

	return l.allowLocal(key, perMinute), nil
}

// allowLocal applies a token bucket of perMinute capacity refilled over a minute
func (l *limiter) allowLocal(key string, perMinute int) Result {
	now := l.clock.Now()

	l.mu.Lock()
	entry, ok := l.local[key]
	if !ok || entry.perMinute != perMinute {
		entry = &localEntry{
			limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
			perMinute: perMinute,
		}
		l.local[key] = entry
	}
	entry.lastSeen = now
	reservation := entry.limiter.ReserveN(now, 1)
	l.mu.Unlock()

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		metrics.RecordRateLimited(BackendLocal)
		return Result{Allowed: false, RetryAfter: delay, Backend: BackendLocal}
	}

	return Result{
		Allowed:   true,
		Remaining: int(entry.limiter.TokensAt(now)),
		Backend:   BackendLocal,
	}
}

// monitor re-checks Redis health and evicts idle local limiters
func (l *limiter) monitor() {
	ticker := l.clock.NewTicker(l.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
		}

		if l.redis != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := l.redis.Ping(ctx).Err()
			cancel()

			redisAvailable := err == nil
			wasAvailable := l.redisAvailable.Swap(redisAvailable)
			if !wasAvailable && redisAvailable {
				logger.Info("Redis connection restored")
			}
		}

		l.evictIdle()
	}
}

func (l *limiter) evictIdle() {
	cutoff := l.clock.Now().Add(-l.config.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.local {
		if entry.lastSeen.Before(cutoff) {
			delete(l.local, key)
		}
	}
}

// Close stops the monitor and closes the Redis connection
func (l *limiter) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.stopCh)

		if l.redis != nil {
			if closeErr := l.redis.Close(); closeErr != nil {
				logger.Warn("Error closing Redis connection", zap.Error(closeErr))
				err = closeErr
			}
		}
	})
	return err
}
