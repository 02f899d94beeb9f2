package uploads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pagesafe/pagesafe-backend/pkg/db/models"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
)

// Repository exposes upload/page persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an uploads repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUpload persists a new upload row.
func (r *Repository) CreateUpload(ctx context.Context, upload *models.Upload) (*models.Upload, error) {
	if err := r.db.WithContext(ctx).Create(upload).Error; err != nil {
		return nil, err
	}
	return upload, nil
}

// FindUpload retrieves an upload by ID.
func (r *Repository) FindUpload(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	if err := r.db.WithContext(ctx).First(&upload, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

// SetUploadStatus updates only the status column. Each lifecycle step is
// persisted individually so a crash mid-ingestion is observable.
func (r *Repository) SetUploadStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Upload{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// CountPages returns the number of persisted pages for an upload.
func (r *Repository) CountPages(ctx context.Context, uploadID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Page{}).
		Where("upload_id = ?", uploadID).
		Count(&count).Error
	return count, err
}

// CreatePagesTx bulk-inserts page rows inside the caller's transaction.
func (r *Repository) CreatePagesTx(tx *gorm.DB, pages []models.Page) error {
	if len(pages) == 0 {
		return nil
	}
	return tx.Create(&pages).Error
}

// DeletePages removes all pages belonging to an upload.
func (r *Repository) DeletePages(ctx context.Context, uploadID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Delete(&models.Page{}).Error
}

// FailStaleUploads parks uploads stuck in a non-terminal status for longer
// than maxAge as FAILED and returns the number affected. An upload whose
// in-process job was lost to a restart would otherwise stay PENDING forever.
func (r *Repository) FailStaleUploads(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := r.db.WithContext(ctx).
		Model(&models.Upload{}).
		Where("status IN ?", []enums.UploadStatus{enums.UploadStatusPending, enums.UploadStatusProcessing}).
		Where("uploaded_at < ?", cutoff).
		Update("status", enums.UploadStatusFailed)
	return res.RowsAffected, res.Error
}

// FindUploadTx retrieves an upload inside the caller's transaction.
func (r *Repository) FindUploadTx(tx *gorm.DB, id uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	if err := tx.First(&upload, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

// PagesForUploadTx returns an upload's pages in ascending page order.
func (r *Repository) PagesForUploadTx(tx *gorm.DB, uploadID uuid.UUID) ([]models.Page, error) {
	var pages []models.Page
	err := tx.
		Where("upload_id = ?", uploadID).
		Order("page_number ASC").
		Find(&pages).Error
	return pages, err
}

// UpsertRedactedPageTx inserts or replaces the redacted artifact keyed by
// page identity, so at most one live artifact exists per page.
func (r *Repository) UpsertRedactedPageTx(tx *gorm.DB, redacted *models.RedactedPage) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"redacted_bytes", "region_count", "updated_at"}),
	}).Create(redacted).Error
}
