package models

import (
	"time"

	"github.com/google/uuid"
)

// RedactedPage is the obscured artifact for a Page. At most one live row per
// page; batch redaction upserts on page_id.
type RedactedPage struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PageID        uuid.UUID `gorm:"column:page_id;type:uuid;not null;uniqueIndex"`
	RedactedBytes []byte    `gorm:"column:redacted_bytes;not null"`
	RegionCount   int       `gorm:"column:region_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (RedactedPage) TableName() string { return "redacted_pages" }
