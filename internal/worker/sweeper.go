package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/metrics"
	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/internal/selection"
	"github.com/vertex-ar/backend/pkg/queue"
)

// VideoLister lists videos that carry a subscription end.
type VideoLister interface {
	ListSubscribedVideos(ctx context.Context) ([]models.Video, error)
}

// NoticeQueue enqueues de-duplicated expiry notices.
type NoticeQueue interface {
	EnqueueExpiryNotice(ctx context.Context, payload queue.ExpiryNoticePayload, ttl time.Duration) (bool, error)
}

// ExpirySweeper periodically computes subscription status and enqueues a notice the first
// time a video is seen expiring or expired.
type ExpirySweeper struct {
	videos    VideoLister
	queue     NoticeQueue
	clock     selection.Clock
	interval  time.Duration
	noticeTTL time.Duration
	logger    *zap.Logger
}

// NewExpirySweeper creates a sweeper.
func NewExpirySweeper(videos VideoLister, q NoticeQueue, clock selection.Clock, interval, noticeTTL time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = selection.NewSystemClock(time.UTC)
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpirySweeper{videos: videos, queue: q, clock: clock, interval: interval, noticeTTL: noticeTTL, logger: logger}
}

// Sweep runs one pass and returns how many notices were enqueued.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	videos, err := s.videos.ListSubscribedVideos(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscribed videos: %w", err)
	}
	now := s.clock.Now()
	enqueued := 0
	for i := range videos {
		v := &videos[i]
		status := selection.VideoStatus(v, now)
		if status != selection.StatusExpiring && status != selection.StatusExpired {
			continue
		}
		payload := queue.ExpiryNoticePayload{
			VideoID:         v.ID,
			ARContentID:     v.ARContentID,
			Title:           v.Title,
			Status:          string(status),
			DaysRemaining:   selection.DaysRemaining(v, now),
			SubscriptionEnd: *v.SubscriptionEnd,
		}
		ok, err := s.queue.EnqueueExpiryNotice(ctx, payload, s.noticeTTL)
		if err != nil {
			metrics.RecordExpiryNotice(string(status), "failed")
			s.logger.Warn("enqueue expiry notice failed", zap.String("video_id", v.ID.String()), zap.Error(err))
			continue
		}
		if !ok {
			metrics.RecordExpiryNotice(string(status), "duplicate")
			continue
		}
		metrics.RecordExpiryNotice(string(status), "enqueued")
		enqueued++
	}
	s.logger.Debug("expiry sweep done", zap.Int("scanned", len(videos)), zap.Int("enqueued", enqueued))
	return enqueued, nil
}

// Run sweeps immediately and then on every interval until ctx is done.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("expiry sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopping")
			return
		case <-ticker.C:
		}
	}
}
