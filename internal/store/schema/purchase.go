package schema

import (
	"time"

	"github.com/mixmint/mixmint-downloads/internal/domain"
)

// Purchase represents the purchases table - permanent, irrevocable access grants
type Purchase struct {
	ID          uint64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      string             `gorm:"column:user_id;not null;type:uuid;uniqueIndex:uq_purchases_user_content"`
	ContentType domain.ContentType `gorm:"column:content_type;not null;type:text;uniqueIndex:uq_purchases_user_content"`
	ContentID   string             `gorm:"column:content_id;not null;type:uuid;uniqueIndex:uq_purchases_user_content"`
	CreatedAt   time.Time          `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Purchase model
func (Purchase) TableName() string {
	return "purchases"
}
