package redaction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pagesafe/pagesafe-backend/internal/ocr"
	"github.com/pagesafe/pagesafe-backend/internal/uploads"
	"github.com/pagesafe/pagesafe-backend/pkg/db/models"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
	pkgerrors "github.com/pagesafe/pagesafe-backend/pkg/errors"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
)

func setupRedactionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	uploadsTable := `
CREATE TABLE IF NOT EXISTS uploads (
  id TEXT PRIMARY KEY,
  filename TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  uploaded_at DATETIME
);`
	pagesTable := `
CREATE TABLE IF NOT EXISTS pages (
  id TEXT PRIMARY KEY,
  upload_id TEXT NOT NULL,
  page_number INTEGER NOT NULL,
  img_bytes BLOB,
  created_at DATETIME,
  UNIQUE (upload_id, page_number)
);`
	redactedTable := `
CREATE TABLE IF NOT EXISTS redacted_pages (
  id TEXT PRIMARY KEY,
  page_id TEXT NOT NULL UNIQUE,
  redacted_bytes BLOB,
  region_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`

	for _, stmt := range []string{uploadsTable, pagesTable, redactedTable} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type txRunner struct {
	db *gorm.DB
}

func (t *txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type stubEngine struct {
	image   []byte
	regions int
	err     error
	calls   int
}

func (s *stubEngine) Redact(ctx context.Context, imageBytes []byte, method enums.RedactionMethod) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	result := &Result{Image: s.image}
	for i := 0; i < s.regions; i++ {
		result.Regions = append(result.Regions, ocr.Box{X: i * 10, Y: 0, Width: 5, Height: 5})
	}
	return result, nil
}

func seedUpload(t *testing.T, db *gorm.DB, pages int) *models.Upload {
	t.Helper()

	upload := &models.Upload{
		ID:       uuid.New(),
		Filename: "statement.pdf",
		Status:   enums.UploadStatusDone,
	}
	require.NoError(t, db.Create(upload).Error)

	for i := 1; i <= pages; i++ {
		require.NoError(t, db.Create(&models.Page{
			ID:         uuid.New(),
			UploadID:   upload.ID,
			PageNumber: i,
			ImgBytes:   []byte(fmt.Sprintf("page-%d", i)),
		}).Error)
	}
	return upload
}

type stubLifecycle struct {
	uploadID    uuid.UUID
	regionCount int
	calls       int
}

func (s *stubLifecycle) UploadRedacted(ctx context.Context, uploadID uuid.UUID, regionCount int) {
	s.calls++
	s.uploadID = uploadID
	s.regionCount = regionCount
}

func newTestRunner(t *testing.T, db *gorm.DB, engine *stubEngine) *Runner {
	t.Helper()
	runner, err := NewRunner(&txRunner{db: db}, uploads.NewRepository(db), engine, nil, nil, nil)
	require.NoError(t, err)
	return runner
}

func TestRunRedactsEveryPage(t *testing.T) {
	db := setupRedactionTestDB(t)
	upload := seedUpload(t, db, 3)
	engine := &stubEngine{image: []byte("redacted"), regions: 2}
	runner := newTestRunner(t, db, engine)

	summary, err := runner.Run(context.Background(), upload.ID, enums.RedactionMethodBlack)
	require.NoError(t, err)

	assert.Equal(t, upload.ID, summary.UploadID)
	assert.Equal(t, 3, summary.TotalPages)
	assert.Equal(t, 6, summary.TotalRegionsRedacted)
	require.Len(t, summary.Pages, 3)
	assert.Equal(t, 1, summary.Pages[0].PageNumber)
	assert.Equal(t, 3, summary.Pages[2].PageNumber)

	var count int64
	require.NoError(t, db.Model(&models.RedactedPage{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRunRerunReplacesArtifacts(t *testing.T) {
	db := setupRedactionTestDB(t)
	upload := seedUpload(t, db, 2)
	engine := &stubEngine{image: []byte("first-pass"), regions: 1}
	runner := newTestRunner(t, db, engine)

	_, err := runner.Run(context.Background(), upload.ID, enums.RedactionMethodBlack)
	require.NoError(t, err)

	engine.image = []byte("second-pass")
	engine.regions = 4
	_, err = runner.Run(context.Background(), upload.ID, enums.RedactionMethodBlur)
	require.NoError(t, err)

	var artifacts []models.RedactedPage
	require.NoError(t, db.Find(&artifacts).Error)
	require.Len(t, artifacts, 2, "rerun must replace, not duplicate")
	for _, artifact := range artifacts {
		assert.Equal(t, []byte("second-pass"), artifact.RedactedBytes)
		assert.Equal(t, 4, artifact.RegionCount)
	}
}

func TestRunPublishesLifecycleEvent(t *testing.T) {
	db := setupRedactionTestDB(t)
	upload := seedUpload(t, db, 2)
	engine := &stubEngine{image: []byte("redacted"), regions: 3}
	events := &stubLifecycle{}

	runner, err := NewRunner(&txRunner{db: db}, uploads.NewRepository(db), engine, events, nil, nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), upload.ID, enums.RedactionMethodBlack)
	require.NoError(t, err)

	assert.Equal(t, 1, events.calls)
	assert.Equal(t, upload.ID, events.uploadID)
	assert.Equal(t, 6, events.regionCount)
}

func TestRunSkipsLifecycleEventOnFailure(t *testing.T) {
	db := setupRedactionTestDB(t)
	upload := seedUpload(t, db, 1)
	engine := &stubEngine{err: errors.New("model offline")}
	events := &stubLifecycle{}

	runner, err := NewRunner(&txRunner{db: db}, uploads.NewRepository(db), engine, events, nil, nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), upload.ID, enums.RedactionMethodBlack)
	require.Error(t, err)
	assert.Zero(t, events.calls, "failed runs must not announce a redaction")
}

func TestRunAttachesPageIDToLogs(t *testing.T) {
	db := setupRedactionTestDB(t)
	upload := seedUpload(t, db, 1)
	engine := &stubEngine{image: []byte("redacted"), regions: 1}

	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})

	runner, err := NewRunner(&txRunner{db: db}, uploads.NewRepository(db), engine, nil, logg, nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), upload.ID, enums.RedactionMethodBlack)
	require.NoError(t, err)

	var page models.Page
	require.NoError(t, db.First(&page).Error)
	assert.Contains(t, buf.String(), `"page_id":"`+page.ID.String()+`"`)
	assert.Contains(t, buf.String(), "page redacted")
}

func TestRunUnknownUpload(t *testing.T) {
	db := setupRedactionTestDB(t)
	runner := newTestRunner(t, db, &stubEngine{})

	_, err := runner.Run(context.Background(), uuid.New(), enums.RedactionMethodBlack)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRunUploadWithoutPages(t *testing.T) {
	db := setupRedactionTestDB(t)
	upload := seedUpload(t, db, 0)
	runner := newTestRunner(t, db, &stubEngine{})

	_, err := runner.Run(context.Background(), upload.ID, enums.RedactionMethodBlack)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRunInvalidMethod(t *testing.T) {
	db := setupRedactionTestDB(t)
	runner := newTestRunner(t, db, &stubEngine{})

	_, err := runner.Run(context.Background(), uuid.New(), enums.RedactionMethod("pixelate"))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRunAbortsBatchOnEngineFailure(t *testing.T) {
	db := setupRedactionTestDB(t)
	upload := seedUpload(t, db, 3)
	engine := &stubEngine{err: errors.New("ocr backend down")}
	runner := newTestRunner(t, db, engine)

	_, err := runner.Run(context.Background(), upload.ID, enums.RedactionMethodBlack)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.RedactedPage{}).Count(&count).Error)
	assert.Zero(t, count, "failed batch must leave no artifacts behind")
}
