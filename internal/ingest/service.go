package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagesafe/pagesafe-backend/pkg/db/models"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
	"github.com/pagesafe/pagesafe-backend/pkg/metrics"
)

type dbClient interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository interface {
	FindUpload(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	SetUploadStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus) error
	CreatePagesTx(tx *gorm.DB, pages []models.Page) error
	DeletePages(ctx context.Context, uploadID uuid.UUID) error
}

type pageDecoder interface {
	DecodePages(raw []byte) ([][]byte, error)
}

type lifecyclePublisher interface {
	UploadIngested(ctx context.Context, uploadID uuid.UUID, pageCount int)
	UploadIngestFailed(ctx context.Context, uploadID uuid.UUID, reason string)
}

// Service drives an upload through its ingestion lifecycle: PENDING to
// PROCESSING, then DONE once every page is persisted, or FAILED with no
// pages left behind. FAILED is terminal; re-ingestion requires a fresh
// submission.
type Service struct {
	db      dbClient
	repo    repository
	decoder pageDecoder
	events  lifecyclePublisher
	logg    *logger.Logger
	metrics *metrics.PipelineMetrics
}

// NewService constructs the ingestion service.
func NewService(db dbClient, repo repository, decoder pageDecoder, events lifecyclePublisher, logg *logger.Logger, pipelineMetrics *metrics.PipelineMetrics) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if decoder == nil {
		return nil, fmt.Errorf("page decoder required")
	}
	return &Service{
		db:      db,
		repo:    repo,
		decoder: decoder,
		events:  events,
		logg:    logg,
		metrics: pipelineMetrics,
	}, nil
}

// Ingest decomposes the document into page images and persists them in one
// transaction. worker labels the metrics series for the goroutine running
// the job.
func (s *Service) Ingest(ctx context.Context, worker string, job Job) error {
	start := time.Now()
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(ctx, map[string]any{
			"upload_id": job.UploadID.String(),
			"filename":  job.Filename,
		})
	}

	upload, err := s.repo.FindUpload(logCtx, job.UploadID)
	if err != nil {
		return fmt.Errorf("loading upload: %w", err)
	}
	if upload.Status != enums.UploadStatusPending {
		if s.logg != nil {
			s.logg.Warn(logCtx, fmt.Sprintf("skipping ingestion, upload is %s", upload.Status))
		}
		return nil
	}

	if err := s.repo.SetUploadStatus(logCtx, job.UploadID, enums.UploadStatusProcessing); err != nil {
		return fmt.Errorf("marking upload processing: %w", err)
	}

	images, err := s.decoder.DecodePages(job.Document)
	if err != nil {
		return s.fail(logCtx, worker, job.UploadID, start, fmt.Errorf("decoding document: %w", err))
	}

	pages := make([]models.Page, 0, len(images))
	for i, img := range images {
		pages = append(pages, models.Page{
			ID:         uuid.New(),
			UploadID:   job.UploadID,
			PageNumber: i + 1,
			ImgBytes:   img,
		})
	}

	err = s.db.WithTx(logCtx, func(tx *gorm.DB) error {
		return s.repo.CreatePagesTx(tx, pages)
	})
	if err != nil {
		return s.fail(logCtx, worker, job.UploadID, start, fmt.Errorf("persisting pages: %w", err))
	}

	if err := s.repo.SetUploadStatus(logCtx, job.UploadID, enums.UploadStatusDone); err != nil {
		return s.fail(logCtx, worker, job.UploadID, start, fmt.Errorf("marking upload done: %w", err))
	}

	s.metrics.AddPagesRasterized(len(pages))
	s.metrics.IncIngestSuccess(worker)
	s.metrics.ObserveIngestDuration("success", time.Since(start))
	if s.events != nil {
		s.events.UploadIngested(logCtx, job.UploadID, len(pages))
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(logCtx, "pages", len(pages)), "ingestion completed")
	}
	return nil
}

// fail reverts any pages written for the upload and parks it in FAILED.
func (s *Service) fail(ctx context.Context, worker string, uploadID uuid.UUID, start time.Time, cause error) error {
	if err := s.repo.DeletePages(ctx, uploadID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "cleaning up pages for failed ingestion", err)
	}
	if err := s.repo.SetUploadStatus(ctx, uploadID, enums.UploadStatusFailed); err != nil && s.logg != nil {
		s.logg.Error(ctx, "marking upload failed", err)
	}

	s.metrics.IncIngestFailure(worker)
	s.metrics.ObserveIngestDuration("failure", time.Since(start))
	if s.events != nil {
		s.events.UploadIngestFailed(ctx, uploadID, cause.Error())
	}
	if s.logg != nil {
		s.logg.Error(ctx, "ingestion failed", cause)
	}
	return cause
}
