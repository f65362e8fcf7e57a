package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotices is the Redis list key for video expiry notice jobs.
	QueueNotices = "worker:notices"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3

	dedupePrefix = "notice:"
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeExpiryNotice JobType = "expiry_notice"
)

// ExpiryNoticePayload is the payload for expiry notice jobs.
type ExpiryNoticePayload struct {
	VideoID         uuid.UUID `json:"video_id"`
	ARContentID     uuid.UUID `json:"ar_content_id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	DaysRemaining   *int      `json:"days_remaining,omitempty"`
	SubscriptionEnd time.Time `json:"subscription_end"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// NoticeKey is the de-duplication key of a (video, status) notice.
func NoticeKey(videoID uuid.UUID, status string) string {
	return dedupePrefix + videoID.String() + ":" + status
}

// EnqueueExpiryNotice enqueues a notice once per (video, status) within ttl.
// Returns false when an identical notice was already enqueued.
func (q *Queue) EnqueueExpiryNotice(ctx context.Context, payload ExpiryNoticePayload, ttl time.Duration) (bool, error) {
	key := NoticeKey(payload.VideoID, payload.Status)
	ok, err := q.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	job, err := newJob(JobTypeExpiryNotice, payload)
	if err != nil {
		q.client.Del(ctx, key)
		return false, err
	}
	if err := q.push(ctx, QueueNotices, job); err != nil {
		q.client.Del(ctx, key)
		return false, err
	}
	q.logger.Debug("enqueued expiry notice", zap.String("job_id", job.ID),
		zap.String("video_id", payload.VideoID.String()), zap.String("status", payload.Status))
	return true, nil
}

func newJob(t JobType, payload any) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}, nil
}

func (q *Queue) push(ctx context.Context, list string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for a job. Returns nil job when none arrived or the
// payload was malformed.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueNotices).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		if err := q.push(ctx, QueueDLQ, job); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.push(ctx, QueueNotices, job); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
