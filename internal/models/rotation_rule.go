package models

import (
	"time"

	"github.com/google/uuid"
)

// RotationRuleType selects how a rotation rule picks a video.
type RotationRuleType string

const (
	RotationRuleFixed        RotationRuleType = "fixed"
	RotationRuleDateSpecific RotationRuleType = "date_specific"
	RotationRuleDailyCycle   RotationRuleType = "daily_cycle"
	RotationRuleWeeklyCycle  RotationRuleType = "weekly_cycle"
	RotationRuleRandomDaily  RotationRuleType = "random_daily"
)

// Valid reports whether t is a known rule type.
func (t RotationRuleType) Valid() bool {
	switch t {
	case RotationRuleFixed, RotationRuleDateSpecific, RotationRuleDailyCycle, RotationRuleWeeklyCycle, RotationRuleRandomDaily:
		return true
	}
	return false
}

// DateRule maps a calendar date to a video. Recurring entries match on month and day only.
type DateRule struct {
	Date      string    `json:"date"`
	VideoID   uuid.UUID `json:"video_id"`
	Recurring bool      `json:"recurring"`
}

// RotationRule is the stored per-item rotation policy. Only one active rule per item is consulted.
type RotationRule struct {
	ID             uuid.UUID        `json:"id"`
	ARContentID    uuid.UUID        `json:"ar_content_id"`
	Name           string           `json:"name"`
	RotationType   RotationRuleType `json:"rotation_type"`
	DefaultVideoID *uuid.UUID       `json:"default_video_id,omitempty"`
	VideoSequence  []uuid.UUID      `json:"video_sequence"`
	DateRules      []DateRule       `json:"date_rules"`
	RandomSeed     *string          `json:"random_seed,omitempty"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
}
