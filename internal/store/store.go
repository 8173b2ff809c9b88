package store

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/store/schema"
)

// UsageCounter names a per-category usage column on the subscriptions table
type UsageCounter string

const (
	UsageCounterTracks     UsageCounter = "tracks_used"
	UsageCounterZip        UsageCounter = "zip_used"
	UsageCounterFanUploads UsageCounter = "fan_uploads_used"
)

// CreateDownloadTokenInput represents the data needed to persist a new download token
type CreateDownloadTokenInput struct {
	Token        string
	UserID       string
	ContentID    string
	ContentType  domain.ContentType
	VersionID    *string
	AccessSource domain.AccessSource
	ExpiresAt    time.Time
	IPAddress    *string
}

// IncrementUsageInput represents a guarded usage increment on an active subscription
type IncrementUsageInput struct {
	UserID  string
	DJID    string
	Counter UsageCounter
	Now     time.Time
}

// CreateDownloadLogInput represents a served download
type CreateDownloadLogInput struct {
	TokenID      uint64
	UserID       string
	ContentID    string
	ContentType  domain.ContentType
	AccessSource domain.AccessSource
	IPAddress    string
	Metadata     datatypes.JSON
}

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// WithTx runs fn inside a database transaction; fn receives a Store bound to that transaction
	WithTx(ctx context.Context, fn func(tx Store) error) error
	// LockUserDownloads takes a transaction-scoped advisory lock serializing token issuance for a user
	LockUserDownloads(ctx context.Context, userID string) error

	// =============================================================================
	// Content
	// =============================================================================

	// GetContentItem retrieves a content item by type and ID, nil if missing
	GetContentItem(ctx context.Context, contentType domain.ContentType, contentID string) (*schema.ContentItem, error)
	// GetContentVersion retrieves a version belonging to the content item, nil if missing
	GetContentVersion(ctx context.Context, contentID string, versionID string) (*schema.ContentVersion, error)
	// UpdateContentFile points a content item at a newly stored file
	UpdateContentFile(ctx context.Context, contentID string, storageKey string, mediaType string, now time.Time) error

	// =============================================================================
	// Entitlement
	// =============================================================================

	// HasPurchase checks whether the user purchased the content item
	HasPurchase(ctx context.Context, userID string, contentType domain.ContentType, contentID string) (bool, error)
	// GetActiveSubscription retrieves the user's subscription to a DJ if it expires after now, nil otherwise
	GetActiveSubscription(ctx context.Context, userID string, djID string, now time.Time) (*schema.Subscription, error)
	// IncrementUsage atomically increments a usage counter when the subscription is active and the quota allows it
	// Returns false when no row matched the guard
	IncrementUsage(ctx context.Context, input IncrementUsageInput) (bool, error)

	// =============================================================================
	// Download tokens
	// =============================================================================

	// CountOutstandingTokens counts the user's unused tokens that expire after now
	CountOutstandingTokens(ctx context.Context, userID string, now time.Time) (int64, error)
	// CreateDownloadToken persists a new unused download token
	CreateDownloadToken(ctx context.Context, input CreateDownloadTokenInput) (*schema.DownloadToken, error)
	// GetRedeemableToken retrieves a token that is unused and expires after now, nil otherwise
	GetRedeemableToken(ctx context.Context, token string, now time.Time) (*schema.DownloadToken, error)
	// MarkTokenUsed flips is_used with a guard on is_used = false
	// Returns false when the token was already used (or does not exist)
	MarkTokenUsed(ctx context.Context, token string, usedAt time.Time) (bool, error)
	// DeleteExpiredTokens deletes up to limit tokens that expired before the cutoff
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time, limit int) (int64, error)

	// =============================================================================
	// Download logs
	// =============================================================================

	// CreateDownloadLog records a served download
	CreateDownloadLog(ctx context.Context, input CreateDownloadLogInput) error

	// =============================================================================
	// Key-value settings
	// =============================================================================

	// SetKeyValue sets a key-value pair
	SetKeyValue(ctx context.Context, key string, value string) error
	// GetAllKeyValuesByPrefix retrieves all key-value pairs with a specific prefix
	GetAllKeyValuesByPrefix(ctx context.Context, prefix string) (map[string]string, error)
}
