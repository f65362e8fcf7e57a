package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/metrics"
	"github.com/vertex-ar/backend/internal/selection"
	"github.com/vertex-ar/backend/pkg/events"
	"github.com/vertex-ar/backend/pkg/queue"
)

// JobSource yields queued jobs and takes failed ones back.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ContentEventPublisher publishes per-content events.
type ContentEventPublisher interface {
	PublishContentEvent(ctx context.Context, arContentID uuid.UUID, event string, payload any) error
}

// NoticeProcessor turns expiry notice jobs into content events.
type NoticeProcessor struct {
	jobs           JobSource
	events         ContentEventPublisher
	dequeueTimeout time.Duration
	retryBackoff   time.Duration
	logger         *zap.Logger
}

// NewNoticeProcessor creates a notice processor.
func NewNoticeProcessor(jobs JobSource, pub ContentEventPublisher, dequeueTimeout, retryBackoff time.Duration, logger *zap.Logger) *NoticeProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}
	return &NoticeProcessor{jobs: jobs, events: pub, dequeueTimeout: dequeueTimeout, retryBackoff: retryBackoff, logger: logger}
}

// Process publishes one expiry notice.
func (p *NoticeProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeExpiryNotice {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ExpiryNoticePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	var event string
	switch selection.Status(payload.Status) {
	case selection.StatusExpiring:
		event = events.EventVideoExpiring
	case selection.StatusExpired:
		event = events.EventVideoExpired
	default:
		return fmt.Errorf("unexpected notice status %q", payload.Status)
	}
	if err := p.events.PublishContentEvent(ctx, payload.ARContentID, event, payload); err != nil {
		return err
	}
	metrics.RecordExpiryNotice(payload.Status, "published")
	p.logger.Info("expiry notice published", zap.String("video_id", payload.VideoID.String()),
		zap.String("ar_content_id", payload.ARContentID.String()), zap.String("event", event))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NoticeProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("notice worker stopping")
			return
		}

		job, err := p.jobs.Dequeue(ctx, p.dequeueTimeout)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("dequeue error", zap.Error(err))
				p.sleep(ctx)
			}
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NoticeProcessor) sleep(ctx context.Context) {
	if p.retryBackoff <= 0 {
		return
	}
	t := time.NewTimer(p.retryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
