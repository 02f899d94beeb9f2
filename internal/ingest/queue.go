package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/pagesafe/pagesafe-backend/pkg/errors"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
)

// Job is one document awaiting decomposition.
type Job struct {
	UploadID uuid.UUID
	Filename string
	Document []byte
}

type ingestor interface {
	Ingest(ctx context.Context, worker string, job Job) error
}

// Dispatcher fans queued jobs out to a fixed pool of ingestion workers.
// Enqueue never blocks; a full queue is reported to the caller instead of
// stalling the request path.
type Dispatcher struct {
	svc     ingestor
	logg    *logger.Logger
	jobs    chan Job
	workers int
	wg      sync.WaitGroup
}

// NewDispatcher constructs a dispatcher with the given pool and queue sizes.
func NewDispatcher(svc ingestor, workers, queueSize int, logg *logger.Logger) (*Dispatcher, error) {
	if svc == nil {
		return nil, fmt.Errorf("ingest service required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive")
	}
	if queueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive")
	}
	return &Dispatcher{
		svc:     svc,
		logg:    logg,
		jobs:    make(chan Job, queueSize),
		workers: workers,
	}, nil
}

// Enqueue hands a job to the pool.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	select {
	case d.jobs <- job:
		return nil
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "ingestion queue unavailable")
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, "ingestion queue is full, retry later")
	}
}

// Start launches the worker pool. Workers drain until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		name := fmt.Sprintf("ingest-%d", i+1)
		d.wg.Add(1)
		go d.work(ctx, name)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, name string) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			// Ingest reports failures through status, metrics and logs; the
			// returned error needs no further handling here.
			_ = d.svc.Ingest(ctx, name, job)
		}
	}
}
