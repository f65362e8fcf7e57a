package selection

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/models"
)

// ScheduleOpen reports whether the schedule is active, fully bounded and contains now.
// Both bounds are inclusive.
func ScheduleOpen(sc models.VideoSchedule, now time.Time) bool {
	if sc.Status != models.ScheduleStatusActive || sc.StartTime == nil || sc.EndTime == nil {
		return false
	}
	return !now.Before(*sc.StartTime) && !now.After(*sc.EndTime)
}

// FindScheduledVideo returns an eligible video of the item with an open schedule window,
// together with the id of that schedule. When several windows are open, the earliest
// start wins, then the lowest video id.
func (s *Selector) FindScheduledVideo(ctx context.Context, item *models.ARContent, now time.Time) (*models.Video, *uuid.UUID) {
	open, err := s.rules.GetOpenSchedules(ctx, item.ID, now)
	if err != nil {
		s.logger.Warn("load open schedules failed", zap.String("ar_content_id", item.ID.String()), zap.Error(err))
		return nil, nil
	}
	candidates := open[:0:0]
	for _, sv := range open {
		if sv.Video.ARContentID != item.ID || !ScheduleOpen(sv.Schedule, now) || !Eligible(&sv.Video, now) {
			continue
		}
		candidates = append(candidates, sv)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Schedule.StartTime.Equal(*b.Schedule.StartTime) {
			return a.Schedule.StartTime.Before(*b.Schedule.StartTime)
		}
		return a.Video.ID.String() < b.Video.ID.String()
	})
	winner := candidates[0]
	v := winner.Video
	scheduleID := winner.Schedule.ID
	return &v, &scheduleID
}

// OpenSchedulesForVideo returns the video's schedules that contain now.
func (s *Selector) OpenSchedulesForVideo(ctx context.Context, videoID uuid.UUID, now time.Time) ([]models.VideoSchedule, error) {
	all, err := s.rules.GetSchedulesForVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	var open []models.VideoSchedule
	for _, sc := range all {
		if ScheduleOpen(sc, now) {
			open = append(open, sc)
		}
	}
	return open, nil
}
