package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoRotationType is the legacy rotation mode stored on each video row.
type VideoRotationType string

const (
	VideoRotationNone       VideoRotationType = "none"
	VideoRotationSequential VideoRotationType = "sequential"
	VideoRotationCyclic     VideoRotationType = "cyclic"
)

// Valid reports whether t is one of the known legacy rotation modes.
func (t VideoRotationType) Valid() bool {
	switch t {
	case VideoRotationNone, VideoRotationSequential, VideoRotationCyclic:
		return true
	}
	return false
}

// Video is a playable asset belonging to exactly one ARContent.
type Video struct {
	ID              uuid.UUID         `json:"id"`
	ARContentID     uuid.UUID         `json:"ar_content_id"`
	Title           string            `json:"title"`
	FileURL         string            `json:"file_url"`
	S3Key           string            `json:"s3_key,omitempty"`
	IsActive        bool              `json:"is_active"`
	SubscriptionEnd *time.Time        `json:"subscription_end,omitempty"`
	RotationType    VideoRotationType `json:"rotation_type"`
	RotationOrder   int               `json:"rotation_order"`
	RotationWeight  int               `json:"rotation_weight"`
	CreatedAt       time.Time         `json:"created_at"`
}
