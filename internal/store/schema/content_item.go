package schema

import (
	"time"

	"github.com/mixmint/mixmint-downloads/internal/domain"
)

// ContentItem represents the content_items table - DJ tracks and album ZIPs
type ContentItem struct {
	// ID is the opaque content identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()"`
	// ContentType is either "track" or "zip"
	ContentType domain.ContentType `gorm:"column:content_type;not null;type:text"`
	// DJID is the owning DJ's user ID
	DJID string `gorm:"column:dj_id;not null;type:uuid;index"`
	// Title is used as the attachment filename on download
	Title string `gorm:"column:title;not null;type:text"`
	// StorageKey is the blob store path of the file
	StorageKey string `gorm:"column:storage_key;not null;type:text"`
	// MediaType is the MIME type of the stored file
	MediaType string `gorm:"column:media_type;not null;type:text;default:'application/octet-stream'"`
	// PriceCents is the one-off purchase price in minor currency units
	PriceCents int64 `gorm:"column:price_cents;not null;default:0"`
	// IsFanOnly restricts the item to the super plan tier
	IsFanOnly bool `gorm:"column:is_fan_only;not null;default:false"`
	// CreatedAt is when the item was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when the item was last modified
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ContentItem model
func (ContentItem) TableName() string {
	return "content_items"
}
