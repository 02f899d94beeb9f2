package events

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/pagesafe/pagesafe-backend/pkg/logger"
)

// Event types emitted on the upload lifecycle topic.
const (
	TypeUploadIngested     = "upload.ingested"
	TypeUploadIngestFailed = "upload.ingest_failed"
	TypeUploadRedacted     = "upload.redacted"
)

type envelope struct {
	Type        string    `json:"type"`
	UploadID    string    `json:"upload_id"`
	PageCount   int       `json:"page_count,omitempty"`
	RegionCount int       `json:"region_count,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher emits advisory upload lifecycle events. A nil Publisher is a
// valid no-op, so callers never branch on whether Pub/Sub is configured.
// Publish failures are logged and swallowed; events never fail the
// operation that produced them.
type Publisher struct {
	topic *pubsub.Publisher
	logg  *logger.Logger
}

// NewPublisher wraps the lifecycle topic. Returns nil when topic is nil.
func NewPublisher(topic *pubsub.Publisher, logg *logger.Logger) *Publisher {
	if topic == nil {
		return nil
	}
	return &Publisher{topic: topic, logg: logg}
}

// UploadIngested reports a successful decomposition.
func (p *Publisher) UploadIngested(ctx context.Context, uploadID uuid.UUID, pageCount int) {
	p.publish(ctx, envelope{
		Type:       TypeUploadIngested,
		UploadID:   uploadID.String(),
		PageCount:  pageCount,
		OccurredAt: time.Now().UTC(),
	})
}

// UploadIngestFailed reports a terminal ingestion failure.
func (p *Publisher) UploadIngestFailed(ctx context.Context, uploadID uuid.UUID, reason string) {
	p.publish(ctx, envelope{
		Type:       TypeUploadIngestFailed,
		UploadID:   uploadID.String(),
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

// UploadRedacted reports a completed batch redaction run.
func (p *Publisher) UploadRedacted(ctx context.Context, uploadID uuid.UUID, regionCount int) {
	p.publish(ctx, envelope{
		Type:        TypeUploadRedacted,
		UploadID:    uploadID.String(),
		RegionCount: regionCount,
		OccurredAt:  time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, evt envelope) {
	if p == nil || p.topic == nil {
		return
	}

	data, err := json.Marshal(evt)
	if err != nil {
		if p.logg != nil {
			p.logg.Error(ctx, "encoding lifecycle event", err)
		}
		return
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": evt.Type},
	})
	if _, err := result.Get(ctx); err != nil && p.logg != nil {
		p.logg.Error(ctx, "publishing lifecycle event", err)
	}
}
