package uploads

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagesafe/pagesafe-backend/internal/ingest"
	"github.com/pagesafe/pagesafe-backend/pkg/db/models"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
	pkgerrors "github.com/pagesafe/pagesafe-backend/pkg/errors"
)

type stubRepo struct {
	uploads   map[uuid.UUID]*models.Upload
	pageCount int64
	statusSet []enums.UploadStatus
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{uploads: map[uuid.UUID]*models.Upload{}}
}

func (s *stubRepo) CreateUpload(ctx context.Context, upload *models.Upload) (*models.Upload, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.uploads[upload.ID] = upload
	return upload, nil
}

func (s *stubRepo) FindUpload(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	upload, ok := s.uploads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return upload, nil
}

func (s *stubRepo) SetUploadStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus) error {
	s.statusSet = append(s.statusSet, status)
	if upload, ok := s.uploads[id]; ok {
		upload.Status = status
	}
	return nil
}

func (s *stubRepo) CountPages(ctx context.Context, uploadID uuid.UUID) (int64, error) {
	return s.pageCount, nil
}

type stubQueue struct {
	jobs []ingest.Job
	err  error
}

func (s *stubQueue) Enqueue(ctx context.Context, job ingest.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

const maxTestUploadBytes = 1 << 20

func pdfBytes(size int) []byte {
	doc := append([]byte("%PDF-1.7\n"), make([]byte, size)...)
	return doc
}

func TestSubmitDocumentQueuesPendingUpload(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	queue := &stubQueue{}
	svc, err := NewService(repo, queue, nil, maxTestUploadBytes)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	out, err := svc.SubmitDocument(context.Background(), SubmitInput{
		Filename: "statement.pdf",
		Document: pdfBytes(128),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if out.Status != enums.UploadStatusPending {
		t.Fatalf("status = %s, want PENDING", out.Status)
	}
	if out.Filename != "statement.pdf" {
		t.Fatalf("filename = %q", out.Filename)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("queued jobs = %d, want 1", len(queue.jobs))
	}
	if queue.jobs[0].UploadID != out.UploadID {
		t.Fatal("job must carry the new upload id")
	}
}

func TestSubmitDocumentValidation(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc, err := NewService(repo, &stubQueue{}, nil, maxTestUploadBytes)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cases := []struct {
		name  string
		input SubmitInput
	}{
		{"missing filename", SubmitInput{Document: pdfBytes(10)}},
		{"empty document", SubmitInput{Filename: "a.pdf"}},
		{"oversized document", SubmitInput{Filename: "a.pdf", Document: pdfBytes(maxTestUploadBytes + 1)}},
		{"not a pdf", SubmitInput{Filename: "a.pdf", Document: []byte("PK\x03\x04 zip bytes")}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.SubmitDocument(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}

	if len(repo.uploads) != 0 {
		t.Fatalf("uploads persisted = %d, want none", len(repo.uploads))
	}
}

func TestSubmitDocumentEnqueueFailureMarksFailed(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	queue := &stubQueue{err: pkgerrors.New(pkgerrors.CodeDependency, "ingestion queue is full, retry later")}
	svc, err := NewService(repo, queue, nil, maxTestUploadBytes)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.SubmitDocument(context.Background(), SubmitInput{
		Filename: "statement.pdf",
		Document: pdfBytes(128),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("err = %v, want dependency error", err)
	}

	if len(repo.statusSet) != 1 || repo.statusSet[0] != enums.UploadStatusFailed {
		t.Fatalf("status updates = %v, want single FAILED", repo.statusSet)
	}
}

func TestGetStatusReturnsSnapshot(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	id := uuid.New()
	repo.uploads[id] = &models.Upload{ID: id, Filename: "statement.pdf", Status: enums.UploadStatusDone}
	repo.pageCount = 4

	svc, err := NewService(repo, &stubQueue{}, nil, maxTestUploadBytes)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	out, err := svc.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if out.Status != enums.UploadStatusDone || out.PageCount != 4 {
		t.Fatalf("snapshot = %+v", out)
	}
}

func TestGetStatusUnknownUpload(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newStubRepo(), &stubQueue{}, nil, maxTestUploadBytes)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.GetStatus(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}
