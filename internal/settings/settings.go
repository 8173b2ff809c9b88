package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

const (
	// KEY_PREFIX namespaces platform settings in the key-value store
	KEY_PREFIX = "settings."

	KeyTokenTTLSeconds            = KEY_PREFIX + "token_ttl_seconds"
	KeyMaxConcurrentDownloads     = KEY_PREFIX + "max_concurrent_downloads"
	KeyDownloadRateLimitPerMinute = KEY_PREFIX + "download_rate_limit_per_minute"

	// DEFAULT_DOWNLOAD_RATE_LIMIT_PER_MINUTE bounds redemptions per client IP
	DEFAULT_DOWNLOAD_RATE_LIMIT_PER_MINUTE = 30
	// DEFAULT_CACHE_TTL is how long loaded settings are served before a reload
	DEFAULT_CACHE_TTL = 30 * time.Second

	MIN_TOKEN_TTL_SECONDS = 30
	// MAX_TOKEN_TTL_SECONDS keeps token expiry within issue time + 5 minutes
	MAX_TOKEN_TTL_SECONDS = int(domain.DEFAULT_TOKEN_TTL / time.Second)
)

// Settings is the platform configuration consulted by the download path
type Settings struct {
	TokenTTL                   time.Duration `json:"token_ttl"`
	MaxConcurrentDownloads     int           `json:"max_concurrent_downloads"`
	DownloadRateLimitPerMinute int           `json:"download_rate_limit_per_minute"`
}

// Defaults returns the built-in settings
func Defaults() Settings {
	return Settings{
		TokenTTL:                   domain.DEFAULT_TOKEN_TTL,
		MaxConcurrentDownloads:     domain.DEFAULT_MAX_CONCURRENT_DOWNLOADS,
		DownloadRateLimitPerMinute: DEFAULT_DOWNLOAD_RATE_LIMIT_PER_MINUTE,
	}
}

// Update is a partial settings change; nil fields are left untouched
type Update struct {
	TokenTTLSeconds            *int `json:"token_ttl_seconds"`
	MaxConcurrentDownloads     *int `json:"max_concurrent_downloads"`
	DownloadRateLimitPerMinute *int `json:"download_rate_limit_per_minute"`
}

// Validate checks the bounds of every field present in the update
func (u Update) Validate() error {
	if u.TokenTTLSeconds != nil && (*u.TokenTTLSeconds < MIN_TOKEN_TTL_SECONDS || *u.TokenTTLSeconds > MAX_TOKEN_TTL_SECONDS) {
		return fmt.Errorf("token_ttl_seconds must be between %d and %d", MIN_TOKEN_TTL_SECONDS, MAX_TOKEN_TTL_SECONDS)
	}
	if u.MaxConcurrentDownloads != nil && (*u.MaxConcurrentDownloads < 1 || *u.MaxConcurrentDownloads > 100) {
		return fmt.Errorf("max_concurrent_downloads must be between 1 and 100")
	}
	if u.DownloadRateLimitPerMinute != nil && (*u.DownloadRateLimitPerMinute < 1 || *u.DownloadRateLimitPerMinute > 10000) {
		return fmt.Errorf("download_rate_limit_per_minute must be between 1 and 10000")
	}
	if u.TokenTTLSeconds == nil && u.MaxConcurrentDownloads == nil && u.DownloadRateLimitPerMinute == nil {
		return fmt.Errorf("no settings to update")
	}
	return nil
}

// Provider serves platform settings from a cache with explicit invalidation
//
//go:generate mockgen -source=settings.go -destination=../mocks/settings.go -package=mocks -mock_names=Provider=MockSettingsProvider
type Provider interface {
	// Get returns the current settings, reloading them when the cache is stale
	Get(ctx context.Context) (Settings, error)
	// Update persists the change and invalidates the cache
	Update(ctx context.Context, update Update) error
	// Invalidate drops the cached settings so the next Get reloads them
	Invalidate()
}

type provider struct {
	store    store.Store
	clock    adapter.Clock
	defaults Settings
	ttl      time.Duration

	mu       sync.RWMutex
	cached   *Settings
	loadedAt time.Time
	// generation is bumped by Invalidate so loads that raced it are not cached
	generation uint64
}

// NewProvider creates a settings provider over the key-value store.
// Stored values override defaults; a zero ttl uses DEFAULT_CACHE_TTL.
func NewProvider(st store.Store, clock adapter.Clock, defaults Settings, ttl time.Duration) Provider {
	if ttl <= 0 {
		ttl = DEFAULT_CACHE_TTL
	}
	return &provider{
		store:    st,
		clock:    clock,
		defaults: defaults,
		ttl:      ttl,
	}
}

func (p *provider) Get(ctx context.Context) (Settings, error) {
	p.mu.RLock()
	if p.cached != nil && p.clock.Since(p.loadedAt) < p.ttl {
		s := *p.cached
		p.mu.RUnlock()
		return s, nil
	}
	generation := p.generation
	p.mu.RUnlock()

	kvs, err := p.store.GetAllKeyValuesByPrefix(ctx, KEY_PREFIX)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	s := p.merge(kvs)

	p.mu.Lock()
	if p.generation == generation {
		p.cached = &s
		p.loadedAt = p.clock.Now()
	}
	p.mu.Unlock()

	return s, nil
}

func (p *provider) Update(ctx context.Context, update Update) error {
	if err := update.Validate(); err != nil {
		return err
	}

	err := p.store.WithTx(ctx, func(tx store.Store) error {
		if update.TokenTTLSeconds != nil {
			if err := tx.SetKeyValue(ctx, KeyTokenTTLSeconds, strconv.Itoa(*update.TokenTTLSeconds)); err != nil {
				return err
			}
		}
		if update.MaxConcurrentDownloads != nil {
			if err := tx.SetKeyValue(ctx, KeyMaxConcurrentDownloads, strconv.Itoa(*update.MaxConcurrentDownloads)); err != nil {
				return err
			}
		}
		if update.DownloadRateLimitPerMinute != nil {
			if err := tx.SetKeyValue(ctx, KeyDownloadRateLimitPerMinute, strconv.Itoa(*update.DownloadRateLimitPerMinute)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	p.Invalidate()
	return nil
}

func (p *provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.generation++
	p.mu.Unlock()
}

// merge applies stored values over the defaults. Malformed values are logged and ignored.
func (p *provider) merge(kvs map[string]string) Settings {
	s := p.defaults

	if v, ok := positiveInt(kvs, KeyTokenTTLSeconds); ok {
		if v > MAX_TOKEN_TTL_SECONDS {
			logger.Warn("Clamping token ttl setting", zap.Int("value", v), zap.Int("max", MAX_TOKEN_TTL_SECONDS))
			v = MAX_TOKEN_TTL_SECONDS
		}
		s.TokenTTL = time.Duration(v) * time.Second
	}
	if v, ok := positiveInt(kvs, KeyMaxConcurrentDownloads); ok {
		s.MaxConcurrentDownloads = v
	}
	if v, ok := positiveInt(kvs, KeyDownloadRateLimitPerMinute); ok {
		s.DownloadRateLimitPerMinute = v
	}

	return s
}

func positiveInt(kvs map[string]string, key string) (int, bool) {
	raw, ok := kvs[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		logger.Warn("Ignoring invalid setting", zap.String("key", key), zap.String("value", raw))
		return 0, false
	}
	return v, true
}
