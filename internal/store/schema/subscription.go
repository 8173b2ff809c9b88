package schema

import (
	"time"

	"github.com/mixmint/mixmint-downloads/internal/domain"
)

// Subscription represents the subscriptions table - one row per (user, dj), renewed in place
type Subscription struct {
	ID     uint64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID string      `gorm:"column:user_id;not null;type:uuid;uniqueIndex:uq_subscriptions_user_dj"`
	DJID   string      `gorm:"column:dj_id;not null;type:uuid;uniqueIndex:uq_subscriptions_user_dj"`
	Plan   domain.Plan `gorm:"column:plan;not null;type:text"`

	// ExpiresAt marks the end of the paid period; the subscription is active while it is in the future
	ExpiresAt time.Time `gorm:"column:expires_at;not null;type:timestamptz"`

	// Quotas of -1 are unlimited
	TrackQuota     int `gorm:"column:track_quota;not null;default:0"`
	TracksUsed     int `gorm:"column:tracks_used;not null;default:0"`
	ZipQuota       int `gorm:"column:zip_quota;not null;default:0"`
	ZipUsed        int `gorm:"column:zip_used;not null;default:0"`
	FanUploadQuota int `gorm:"column:fan_upload_quota;not null;default:0"`
	FanUploadsUsed int `gorm:"column:fan_uploads_used;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Subscription model
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActive reports whether the subscription is still within its paid period
func (s *Subscription) IsActive(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// HasQuotaFor reports whether a standard (non fan-only) download of the given type fits the quota
func (s *Subscription) HasQuotaFor(contentType domain.ContentType) bool {
	switch contentType {
	case domain.ContentTypeTrack:
		return s.TrackQuota == domain.UNLIMITED_QUOTA || s.TracksUsed < s.TrackQuota
	case domain.ContentTypeZip:
		return s.ZipQuota == domain.UNLIMITED_QUOTA || s.ZipUsed < s.ZipQuota
	default:
		return false
	}
}
