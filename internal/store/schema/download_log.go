package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/mixmint/mixmint-downloads/internal/domain"
)

// DownloadLog represents the download_logs table - one row per served download
type DownloadLog struct {
	ID           uint64              `gorm:"column:id;primaryKey;autoIncrement"`
	TokenID      uint64              `gorm:"column:token_id;not null;uniqueIndex"`
	UserID       string              `gorm:"column:user_id;not null;type:uuid;index"`
	ContentID    string              `gorm:"column:content_id;not null;type:uuid"`
	ContentType  domain.ContentType  `gorm:"column:content_type;not null;type:text"`
	AccessSource domain.AccessSource `gorm:"column:access_source;not null;type:text"`
	IPAddress    string              `gorm:"column:ip_address;not null;type:text"`
	// Metadata holds request details such as user agent and version label
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the DownloadLog model
func (DownloadLog) TableName() string {
	return "download_logs"
}
