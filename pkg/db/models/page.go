package models

import (
	"time"

	"github.com/google/uuid"
)

// Page is one rasterized page of an Upload. Rows are created in bulk by the
// ingest state machine and never mutated afterwards.
type Page struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UploadID   uuid.UUID `gorm:"column:upload_id;type:uuid;not null;index;uniqueIndex:idx_pages_upload_page_number,priority:1"`
	PageNumber int       `gorm:"column:page_number;not null;uniqueIndex:idx_pages_upload_page_number,priority:2"`
	ImgBytes   []byte    `gorm:"column:img_bytes;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Page) TableName() string { return "pages" }
