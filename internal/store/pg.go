package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// WithTx runs fn inside a transaction. Nested calls use savepoints.
func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

// LockUserDownloads takes a transaction-scoped advisory lock keyed on the user
// The lock is released on commit or rollback
func (s *pgStore) LockUserDownloads(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "download_tokens:"+userID).Error
	if err != nil {
		return fmt.Errorf("failed to lock user downloads: %w", err)
	}
	return nil
}

// =============================================================================
// Content
// =============================================================================

// GetContentItem retrieves a content item by type and ID
func (s *pgStore) GetContentItem(ctx context.Context, contentType domain.ContentType, contentID string) (*schema.ContentItem, error) {
	var item schema.ContentItem
	err := s.db.WithContext(ctx).
		Where("id = ? AND content_type = ?", contentID, contentType).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return &item, nil
}

// GetContentVersion retrieves a version of a content item
func (s *pgStore) GetContentVersion(ctx context.Context, contentID string, versionID string) (*schema.ContentVersion, error) {
	var version schema.ContentVersion
	err := s.db.WithContext(ctx).
		Where("id = ? AND content_id = ?", versionID, contentID).
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content version: %w", err)
	}
	return &version, nil
}

// UpdateContentFile points a content item at a newly stored file
func (s *pgStore) UpdateContentFile(ctx context.Context, contentID string, storageKey string, mediaType string, now time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&schema.ContentItem{}).
		Where("id = ?", contentID).
		Updates(map[string]interface{}{
			"storage_key": storageKey,
			"media_type":  mediaType,
			"updated_at":  now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update content file: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}

// =============================================================================
// Entitlement
// =============================================================================

// HasPurchase checks whether a purchase row exists for the tuple
func (s *pgStore) HasPurchase(ctx context.Context, userID string, contentType domain.ContentType, contentID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Purchase{}).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, contentType, contentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return count > 0, nil
}

// GetActiveSubscription retrieves the user's subscription to a DJ if still active
func (s *pgStore) GetActiveSubscription(ctx context.Context, userID string, djID string, now time.Time) (*schema.Subscription, error) {
	var sub schema.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND dj_id = ? AND expires_at > ?", userID, djID, now).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return &sub, nil
}

// IncrementUsage increments a usage counter in a single guarded UPDATE
// Track and zip counters only move while below their quota (or the quota is unlimited);
// the fan upload counter is metering only and has no cap
func (s *pgStore) IncrementUsage(ctx context.Context, input IncrementUsageInput) (bool, error) {
	query := s.db.WithContext(ctx).
		Model(&schema.Subscription{}).
		Where("user_id = ? AND dj_id = ? AND expires_at > ?", input.UserID, input.DJID, input.Now)

	switch input.Counter {
	case UsageCounterTracks:
		query = query.Where("(track_quota = ? OR tracks_used < track_quota)", domain.UNLIMITED_QUOTA)
	case UsageCounterZip:
		query = query.Where("(zip_quota = ? OR zip_used < zip_quota)", domain.UNLIMITED_QUOTA)
	case UsageCounterFanUploads:
	default:
		return false, fmt.Errorf("unknown usage counter: %s", input.Counter)
	}

	column := string(input.Counter)
	result := query.Updates(map[string]interface{}{
		column:       gorm.Expr(column + " + 1"),
		"updated_at": input.Now,
	})
	if result.Error != nil {
		return false, fmt.Errorf("failed to increment %s: %w", column, result.Error)
	}

	return result.RowsAffected > 0, nil
}

// =============================================================================
// Download tokens
// =============================================================================

// CountOutstandingTokens counts the user's in-flight download grants
func (s *pgStore) CountOutstandingTokens(ctx context.Context, userID string, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.DownloadToken{}).
		Where("user_id = ? AND is_used = ? AND expires_at > ?", userID, false, now).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count outstanding tokens: %w", err)
	}
	return count, nil
}

// CreateDownloadToken persists a new download token
func (s *pgStore) CreateDownloadToken(ctx context.Context, input CreateDownloadTokenInput) (*schema.DownloadToken, error) {
	token := &schema.DownloadToken{
		Token:        input.Token,
		UserID:       input.UserID,
		ContentID:    input.ContentID,
		ContentType:  input.ContentType,
		VersionID:    input.VersionID,
		AccessSource: input.AccessSource,
		ExpiresAt:    input.ExpiresAt,
		IsUsed:       false,
		IPAddress:    input.IPAddress,
	}

	err := s.db.WithContext(ctx).Create(token).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create download token: %w", err)
	}
	return token, nil
}

// GetRedeemableToken looks a token up with the used and expiry filters in the same query,
// so a used or expired token is indistinguishable from a missing one
func (s *pgStore) GetRedeemableToken(ctx context.Context, token string, now time.Time) (*schema.DownloadToken, error) {
	var t schema.DownloadToken
	err := s.db.WithContext(ctx).
		Where("token = ? AND is_used = ? AND expires_at > ?", token, false, now).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get download token: %w", err)
	}
	return &t, nil
}

// MarkTokenUsed flips is_used to true with a conditional update
func (s *pgStore) MarkTokenUsed(ctx context.Context, token string, usedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.DownloadToken{}).
		Where("token = ? AND is_used = ?", token, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": usedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark token used: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeleteExpiredTokens deletes a batch of tokens that expired before the cutoff
func (s *pgStore) DeleteExpiredTokens(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be positive")
	}

	batch := s.db.
		Model(&schema.DownloadToken{}).
		Select("id").
		Where("expires_at < ?", cutoff).
		Order("id").
		Limit(limit)

	result := s.db.WithContext(ctx).
		Where("id IN (?)", batch).
		Delete(&schema.DownloadToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// =============================================================================
// Download logs
// =============================================================================

// CreateDownloadLog records a served download
func (s *pgStore) CreateDownloadLog(ctx context.Context, input CreateDownloadLogInput) error {
	log := &schema.DownloadLog{
		TokenID:      input.TokenID,
		UserID:       input.UserID,
		ContentID:    input.ContentID,
		ContentType:  input.ContentType,
		AccessSource: input.AccessSource,
		IPAddress:    input.IPAddress,
		Metadata:     input.Metadata,
	}

	err := s.db.WithContext(ctx).Create(log).Error
	if err != nil {
		return fmt.Errorf("failed to create download log: %w", err)
	}
	return nil
}

// =============================================================================
// Key-value settings
// =============================================================================

// SetKeyValue sets a key-value pair in the key-value store
func (s *pgStore) SetKeyValue(ctx context.Context, key string, value string) error {
	kv := schema.KeyValueStore{
		Key:   key,
		Value: value,
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set key-value: %w", err)
	}

	return nil
}

// GetAllKeyValuesByPrefix retrieves all key-value pairs with a specific prefix
func (s *pgStore) GetAllKeyValuesByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	var kvs []schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&kvs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get key-values by prefix: %w", err)
	}

	result := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		result[kv.Key] = kv.Value
	}

	return result, nil
}
