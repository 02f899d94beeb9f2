package redaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagesafe/pagesafe-backend/pkg/db/models"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
	pkgerrors "github.com/pagesafe/pagesafe-backend/pkg/errors"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
	"github.com/pagesafe/pagesafe-backend/pkg/metrics"
)

type dbClient interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository interface {
	FindUploadTx(tx *gorm.DB, id uuid.UUID) (*models.Upload, error)
	PagesForUploadTx(tx *gorm.DB, uploadID uuid.UUID) ([]models.Page, error)
	UpsertRedactedPageTx(tx *gorm.DB, redacted *models.RedactedPage) error
}

type redactor interface {
	Redact(ctx context.Context, imageBytes []byte, method enums.RedactionMethod) (*Result, error)
}

type lifecyclePublisher interface {
	UploadRedacted(ctx context.Context, uploadID uuid.UUID, regionCount int)
}

// PageResult summarizes one redacted page.
type PageResult struct {
	PageID          uuid.UUID `json:"page_id"`
	PageNumber      int       `json:"page_number"`
	RegionsRedacted int       `json:"regions_redacted"`
}

// Summary enumerates the outcome of a batch redaction run.
type Summary struct {
	UploadID             uuid.UUID    `json:"upload_id"`
	TotalPages           int          `json:"total_pages"`
	TotalRegionsRedacted int          `json:"total_regions_redacted"`
	Pages                []PageResult `json:"pages"`
}

// Runner redacts every page of an upload inside one transaction. A failure
// on any page aborts the whole batch; redacted artifacts are upserted by
// page identity so a rerun replaces rather than duplicates.
type Runner struct {
	db      dbClient
	repo    repository
	engine  redactor
	events  lifecyclePublisher
	logg    *logger.Logger
	metrics *metrics.PipelineMetrics
}

// NewRunner constructs a batch redaction runner.
func NewRunner(db dbClient, repo repository, engine redactor, events lifecyclePublisher, logg *logger.Logger, pipelineMetrics *metrics.PipelineMetrics) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("redaction engine required")
	}
	return &Runner{
		db:      db,
		repo:    repo,
		engine:  engine,
		events:  events,
		logg:    logg,
		metrics: pipelineMetrics,
	}, nil
}

// Run redacts all pages of uploadID in ascending page order and commits the
// artifacts together at the end.
func (r *Runner) Run(ctx context.Context, uploadID uuid.UUID, method enums.RedactionMethod) (*Summary, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported redaction method %q", method))
	}

	var summary *Summary
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		upload, err := r.repo.FindUploadTx(tx, uploadID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading upload")
		}

		pages, err := r.repo.PagesForUploadTx(tx, upload.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading pages")
		}
		if len(pages) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no pages found for this upload")
		}

		results := make([]PageResult, 0, len(pages))
		total := 0
		for _, page := range pages {
			pageCtx := ctx
			if r.logg != nil {
				pageCtx = r.logg.WithPageID(ctx, page.ID.String())
			}

			result, err := r.engine.Redact(pageCtx, page.ImgBytes, method)
			if err != nil {
				return fmt.Errorf("redacting page %d: %w", page.PageNumber, err)
			}

			if err := r.repo.UpsertRedactedPageTx(tx, &models.RedactedPage{
				ID:            uuid.New(),
				PageID:        page.ID,
				RedactedBytes: result.Image,
				RegionCount:   result.RegionCount(),
			}); err != nil {
				return fmt.Errorf("persisting redacted page %d: %w", page.PageNumber, err)
			}

			r.metrics.ObserveRegionsRedacted(result.RegionCount())
			if r.logg != nil {
				r.logg.Debug(r.logg.WithField(pageCtx, "regions", result.RegionCount()), "page redacted")
			}
			results = append(results, PageResult{
				PageID:          page.ID,
				PageNumber:      page.PageNumber,
				RegionsRedacted: result.RegionCount(),
			})
			total += result.RegionCount()
		}

		summary = &Summary{
			UploadID:             upload.ID,
			TotalPages:           len(pages),
			TotalRegionsRedacted: total,
			Pages:                results,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.events != nil {
		r.events.UploadRedacted(ctx, summary.UploadID, summary.TotalRegionsRedacted)
	}
	if r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"upload_id":     summary.UploadID.String(),
			"total_pages":   summary.TotalPages,
			"total_regions": summary.TotalRegionsRedacted,
		})
		r.logg.Info(logCtx, "batch redaction completed")
	}
	return summary, nil
}
