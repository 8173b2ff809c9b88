package schema

import (
	"time"

	"github.com/mixmint/mixmint-downloads/internal/domain"
)

// DownloadToken represents the download_tokens table - single-use, IP-bound, time-boxed credentials
type DownloadToken struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Token is the random opaque credential and lookup key
	Token       string             `gorm:"column:token;not null;uniqueIndex;type:text"`
	UserID      string             `gorm:"column:user_id;not null;type:uuid;index:idx_download_tokens_user_outstanding"`
	ContentID   string             `gorm:"column:content_id;not null;type:uuid"`
	ContentType domain.ContentType `gorm:"column:content_type;not null;type:text"`
	// VersionID selects an alternate file of the content item
	VersionID    *string             `gorm:"column:version_id;type:uuid"`
	AccessSource domain.AccessSource `gorm:"column:access_source;not null;type:text"`
	ExpiresAt    time.Time           `gorm:"column:expires_at;not null;type:timestamptz;index:idx_download_tokens_user_outstanding"`
	// IsUsed flips to true exactly once, through a guarded update
	IsUsed bool       `gorm:"column:is_used;not null;default:false;index:idx_download_tokens_user_outstanding"`
	UsedAt *time.Time `gorm:"column:used_at;type:timestamptz"`
	// IPAddress is the client IP that requested issuance
	IPAddress *string   `gorm:"column:ip_address;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the DownloadToken model
func (DownloadToken) TableName() string {
	return "download_tokens"
}

// MatchesIP reports whether the redeeming client may use this token.
// Tokens issued without a recorded IP are not IP-locked.
func (t *DownloadToken) MatchesIP(clientIP string) bool {
	if t.IPAddress == nil || *t.IPAddress == "" {
		return true
	}
	return *t.IPAddress == clientIP
}
