package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagesafe/pagesafe-backend/internal/ingest"
	"github.com/pagesafe/pagesafe-backend/pkg/db/models"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
	pkgerrors "github.com/pagesafe/pagesafe-backend/pkg/errors"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
)

var pdfMagic = []byte("%PDF-")

type repository interface {
	CreateUpload(ctx context.Context, upload *models.Upload) (*models.Upload, error)
	FindUpload(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	SetUploadStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus) error
	CountPages(ctx context.Context, uploadID uuid.UUID) (int64, error)
}

type enqueuer interface {
	Enqueue(ctx context.Context, job ingest.Job) error
}

// SubmitInput carries an incoming document submission.
type SubmitInput struct {
	Filename string
	Document []byte
}

// SubmitOutput acknowledges an accepted submission.
type SubmitOutput struct {
	UploadID uuid.UUID          `json:"upload_id"`
	Filename string             `json:"filename"`
	Status   enums.UploadStatus `json:"status"`
}

// StatusOutput is a point-in-time snapshot of an upload's lifecycle.
type StatusOutput struct {
	UploadID   uuid.UUID          `json:"upload_id"`
	Filename   string             `json:"filename"`
	Status     enums.UploadStatus `json:"status"`
	PageCount  int64              `json:"page_count"`
	UploadedAt time.Time          `json:"uploaded_at"`
}

// Service accepts document submissions and reports their lifecycle state.
// Submission only records the upload and hands the raw bytes to the ingest
// queue; decomposition happens asynchronously.
type Service struct {
	repo           repository
	queue          enqueuer
	logg           *logger.Logger
	maxUploadBytes int64
}

// NewService constructs the uploads service.
func NewService(repo repository, queue enqueuer, logg *logger.Logger, maxUploadBytes int64) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if queue == nil {
		return nil, fmt.Errorf("ingest queue required")
	}
	if maxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	return &Service{
		repo:           repo,
		queue:          queue,
		logg:           logg,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

// SubmitDocument validates the document, records it as PENDING and enqueues
// it for ingestion. The returned status is always PENDING; callers poll
// GetStatus for progress.
func (s *Service) SubmitDocument(ctx context.Context, input SubmitInput) (*SubmitOutput, error) {
	if strings.TrimSpace(input.Filename) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	if len(input.Document) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document is empty")
	}
	if int64(len(input.Document)) > s.maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document exceeds the maximum upload size")
	}
	if !bytes.HasPrefix(input.Document, pdfMagic) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only PDF documents are supported")
	}

	upload, err := s.repo.CreateUpload(ctx, &models.Upload{
		ID:       uuid.New(),
		Filename: input.Filename,
		Status:   enums.UploadStatusPending,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording upload")
	}

	if err := s.queue.Enqueue(ctx, ingest.Job{
		UploadID: upload.ID,
		Filename: upload.Filename,
		Document: input.Document,
	}); err != nil {
		// The row exists but nothing will process it; mark it FAILED so the
		// caller is not left polling a PENDING upload forever.
		if setErr := s.repo.SetUploadStatus(ctx, upload.ID, enums.UploadStatusFailed); setErr != nil && s.logg != nil {
			s.logg.Error(ctx, "marking unqueued upload failed", setErr)
		}
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUploadID(ctx, upload.ID.String())
		s.logg.Info(logCtx, "document accepted for ingestion")
	}

	return &SubmitOutput{
		UploadID: upload.ID,
		Filename: upload.Filename,
		Status:   upload.Status,
	}, nil
}

// GetStatus returns the upload's current lifecycle state and page count.
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (*StatusOutput, error) {
	upload, err := s.repo.FindUpload(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading upload")
	}

	pageCount, err := s.repo.CountPages(ctx, upload.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting pages")
	}

	return &StatusOutput{
		UploadID:   upload.ID,
		Filename:   upload.Filename,
		Status:     upload.Status,
		PageCount:  pageCount,
		UploadedAt: upload.UploadedAt,
	}, nil
}
