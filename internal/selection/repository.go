package selection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vertex-ar/backend/internal/models"
)

// ContentRepository reads AR content items and their videos.
// Missing rows are reported as models.ErrNotFound.
type ContentRepository interface {
	GetARContent(ctx context.Context, id uuid.UUID) (*models.ARContent, error)
	GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)
	// ListVideos returns all videos of the item ordered by rotation_order, then id.
	ListVideos(ctx context.Context, arContentID uuid.UUID) ([]models.Video, error)
	// PersistRotationAdvance stores the new legacy rotation cursor.
	PersistRotationAdvance(ctx context.Context, arContentID uuid.UUID, newState int) error
}

// RuleRepository reads rotation rules and schedules.
type RuleRepository interface {
	// GetActiveRotationRule returns the single active rule, or nil when the item has none.
	GetActiveRotationRule(ctx context.Context, arContentID uuid.UUID) (*models.RotationRule, error)
	// GetOpenSchedules returns schedules of the item's videos whose window contains now.
	GetOpenSchedules(ctx context.Context, arContentID uuid.UUID, now time.Time) ([]models.ScheduledVideo, error)
	GetSchedulesForVideo(ctx context.Context, videoID uuid.UUID) ([]models.VideoSchedule, error)
}

// Locker provides per-key mutual exclusion around the legacy rotation read-evaluate-advance.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Metrics receives selection outcomes.
type Metrics interface {
	ObserveSelection(source Source, elapsed time.Duration)
	ObserveNoVideo(elapsed time.Duration)
	ObserveRotationAdvance(mode models.VideoRotationType, persisted bool)
	ObserveLockFailure()
}

type nopMetrics struct{}

func (nopMetrics) ObserveSelection(Source, time.Duration)                {}
func (nopMetrics) ObserveNoVideo(time.Duration)                          {}
func (nopMetrics) ObserveRotationAdvance(models.VideoRotationType, bool) {}
func (nopMetrics) ObserveLockFailure()                                   {}
