package models

import (
	"time"

	"github.com/google/uuid"
)

// Schedule statuses. Only active schedules are considered by selection.
const (
	ScheduleStatusActive   = "active"
	ScheduleStatusInactive = "inactive"
)

// VideoSchedule is a time window attached to one video.
type VideoSchedule struct {
	ID          uuid.UUID  `json:"id"`
	VideoID     uuid.UUID  `json:"video_id"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Status      string     `json:"status"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ScheduledVideo pairs a video with the schedule window that made it eligible.
type ScheduledVideo struct {
	Video    Video
	Schedule VideoSchedule
}
