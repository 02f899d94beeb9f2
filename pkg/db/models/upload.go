package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pagesafe/pagesafe-backend/pkg/enums"
)

// Upload is a submitted document and the root of the redaction lifecycle.
// Status transitions are owned exclusively by the ingest state machine.
type Upload struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Filename   string             `gorm:"column:filename;not null"`
	Status     enums.UploadStatus `gorm:"column:status;not null;default:PENDING"`
	UploadedAt time.Time          `gorm:"column:uploaded_at;autoCreateTime"`

	Pages []Page `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"`
}

func (Upload) TableName() string { return "uploads" }
