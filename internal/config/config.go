package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mixmint/mixmint-downloads/internal/blob"
	"github.com/mixmint/mixmint-downloads/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration.
// An empty URL disables event publishing.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	MaxAge         time.Duration `mapstructure:"max_age"`
}

// EventsConfig holds the download event emitter configuration
type EventsConfig struct {
	WorkerPoolSize int           `mapstructure:"pool_size"`
	QueueSize      int           `mapstructure:"queue_size"`
	RetryBudget    time.Duration `mapstructure:"retry_budget"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout    int      `mapstructure:"idle_timeout"`  // in seconds
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadSize  int64    `mapstructure:"max_upload_size"` // in bytes
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// JWTSecret verifies HS256 session tokens from the identity provider
	JWTSecret string `mapstructure:"jwt_secret"`
	// JWTPublicKey verifies RS256 session tokens (PEM)
	JWTPublicKey string `mapstructure:"jwt_public_key"`
	// JWTAudience is checked when set
	JWTAudience string `mapstructure:"jwt_audience"`
	// APIKeys authorize admin routes
	APIKeys []string `mapstructure:"api_keys"`
}

// CloudflareConfig holds Cloudflare configuration
type CloudflareConfig struct {
	AccountID string `mapstructure:"account_id"`
	APIToken  string `mapstructure:"api_token"`
	// KVNamespaces maps a blob bucket to a Workers KV namespace ID
	KVNamespaces map[string]string `mapstructure:"kv_namespaces"`
}

const (
	BLOB_BACKEND_FILESYSTEM = "filesystem"
	BLOB_BACKEND_CLOUDFLARE = "cloudflare"
)

// BlobConfig selects and configures the blob store backend
type BlobConfig struct {
	Backend string `mapstructure:"backend"` // BLOB_BACKEND_FILESYSTEM or BLOB_BACKEND_CLOUDFLARE
	Bucket  string `mapstructure:"bucket"`
	RootDir string `mapstructure:"root_dir"` // filesystem backend only
}

// RedisConfig holds Redis configuration.
// An empty Addr and URL runs the rate limiter on local limiters only.
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds the download rate limiter configuration
type RateLimitConfig struct {
	RedisKeyPrefix      string        `mapstructure:"redis_key_prefix"`
	EnableLocalFallback bool          `mapstructure:"enable_local_fallback"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

// SettingsConfig holds the defaults of platform settings and their cache TTL
type SettingsConfig struct {
	CacheTTL                   time.Duration `mapstructure:"cache_ttl"`
	TokenTTL                   time.Duration `mapstructure:"token_ttl"`
	MaxConcurrentDownloads     int           `mapstructure:"max_concurrent_downloads"`
	DownloadRateLimitPerMinute int           `mapstructure:"download_rate_limit_per_minute"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Events     EventsConfig     `mapstructure:"events"`
	Blob       BlobConfig       `mapstructure:"blob"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Settings   SettingsConfig   `mapstructure:"settings"`
}

// TokenCleanupSweeperConfig holds configuration for the expired token sweeper
type TokenCleanupSweeperConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	BatchSize   int           `mapstructure:"batch_size"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// SweeperConfig holds configuration for the sweeper program
type SweeperConfig struct {
	BaseConfig          `mapstructure:",squash"`
	Database            DatabaseConfig            `mapstructure:"database"`
	TokenCleanupSweeper TokenCleanupSweeperConfig `mapstructure:"token_cleanup_sweeper"`
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 300) // downloads stream for a while
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.max_upload_size", 500*1024*1024) // 500MB
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "DOWNLOAD_EVENTS")
	v.SetDefault("nats.connection_name", "mixmint-api")
	v.SetDefault("nats.max_age", "720h")
	v.SetDefault("events.pool_size", 4)
	v.SetDefault("events.queue_size", 1000)
	v.SetDefault("events.retry_budget", "30s")
	v.SetDefault("events.publish_timeout", "5s")
	v.SetDefault("blob.backend", BLOB_BACKEND_FILESYSTEM)
	v.SetDefault("blob.bucket", "mixmint-content")
	v.SetDefault("blob.root_dir", "data/blobs")
	v.SetDefault("rate_limit.redis_key_prefix", "mixmint:ratelimit:")
	v.SetDefault("rate_limit.enable_local_fallback", true)
	v.SetDefault("rate_limit.health_check_interval", "10s")
	v.SetDefault("settings.cache_ttl", "30s")
	v.SetDefault("settings.token_ttl", "5m")
	v.SetDefault("settings.max_concurrent_downloads", 3)
	v.SetDefault("settings.download_rate_limit_per_minute", 30)

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the combinations viper can not express as defaults
func (c *APIConfig) Validate() error {
	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
		return errors.New("auth.jwt_secret or auth.jwt_public_key is required")
	}
	switch c.Blob.Backend {
	case BLOB_BACKEND_FILESYSTEM:
		if c.Blob.RootDir == "" {
			return errors.New("blob.root_dir is required for the filesystem backend")
		}
	case BLOB_BACKEND_CLOUDFLARE:
		if c.Cloudflare.AccountID == "" || c.Cloudflare.APIToken == "" {
			return errors.New("cloudflare.account_id and cloudflare.api_token are required for the cloudflare backend")
		}
		if c.Cloudflare.KVNamespaces[c.Blob.Bucket] == "" {
			return fmt.Errorf("cloudflare.kv_namespaces has no namespace for bucket %q", c.Blob.Bucket)
		}
		if c.Server.MaxUploadSize > blob.CLOUDFLARE_MAX_OBJECT_SIZE {
			return fmt.Errorf("server.max_upload_size %d exceeds the cloudflare backend object limit of %d bytes",
				c.Server.MaxUploadSize, blob.CLOUDFLARE_MAX_OBJECT_SIZE)
		}
	default:
		return fmt.Errorf("unknown blob.backend %q", c.Blob.Backend)
	}
	if c.Blob.Bucket == "" {
		return errors.New("blob.bucket is required")
	}
	if c.Settings.TokenTTL <= 0 || c.Settings.TokenTTL > domain.DEFAULT_TOKEN_TTL {
		return fmt.Errorf("settings.token_ttl must be positive and at most %s", domain.DEFAULT_TOKEN_TTL)
	}
	return nil
}

// LoadSweeperConfig loads configuration for the sweeper program
func LoadSweeperConfig(configFile string, envPath string) (*SweeperConfig, error) {
	v := configureViper("sweeper", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("token_cleanup_sweeper.interval", "10m")
	v.SetDefault("token_cleanup_sweeper.batch_size", 1000)
	v.SetDefault("token_cleanup_sweeper.grace_period", "24h")

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg SweeperConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Database.Host == "" {
		return nil, errors.New("database.host is required")
	}
	if cfg.Database.DBName == "" {
		return nil, errors.New("database.dbname is required")
	}

	return &cfg, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/sweeper/, cmd/api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("MIXMINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	commonKeys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.max_age",
		// Events
		"events.pool_size",
		"events.queue_size",
		"events.retry_budget",
		"events.publish_timeout",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.trusted_proxies",
		"server.allowed_origins",
		"server.max_upload_size",
		// Auth
		"auth.jwt_secret",
		"auth.jwt_public_key",
		"auth.jwt_audience",
		"auth.api_keys",
		// Blob
		"blob.backend",
		"blob.bucket",
		"blob.root_dir",
		// Cloudflare
		"cloudflare.account_id",
		"cloudflare.api_token",
		// Redis
		"redis.url",
		"redis.addr",
		"redis.password",
		"redis.db",
		// Rate limit
		"rate_limit.redis_key_prefix",
		"rate_limit.enable_local_fallback",
		"rate_limit.health_check_interval",
		// Platform settings defaults
		"settings.cache_ttl",
		"settings.token_ttl",
		"settings.max_concurrent_downloads",
		"settings.download_rate_limit_per_minute",
		// Token cleanup sweeper
		"token_cleanup_sweeper.interval",
		"token_cleanup_sweeper.batch_size",
		"token_cleanup_sweeper.grace_period",
	}

	for _, key := range commonKeys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
