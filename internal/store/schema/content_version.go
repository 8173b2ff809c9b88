package schema

import "time"

// ContentVersion represents the content_versions table - alternate files of a content item
// (e.g. extended mix, radio edit, lossless master)
type ContentVersion struct {
	ID         string    `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()"`
	ContentID  string    `gorm:"column:content_id;not null;type:uuid;index"`
	Label      string    `gorm:"column:label;not null;type:text"`
	StorageKey string    `gorm:"column:storage_key;not null;type:text"`
	MediaType  string    `gorm:"column:media_type;not null;type:text;default:'application/octet-stream'"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ContentVersion model
func (ContentVersion) TableName() string {
	return "content_versions"
}
