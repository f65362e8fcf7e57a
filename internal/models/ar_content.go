package models

import (
	"time"

	"github.com/google/uuid"
)

// ARContent is the unit a marker resolves to. It owns the candidate videos.
type ARContent struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	ActiveVideoID *uuid.UUID `json:"active_video_id,omitempty"`
	// RotationState is the legacy sequential/cyclic cursor. Never negative.
	RotationState int       `json:"rotation_state"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AdvanceRotation moves the legacy cursor after the legacy layer served a video.
// Sequential stops at the last index; cyclic grows without bound and wraps on read.
// It reports whether the cursor changed.
func (a *ARContent) AdvanceRotation(mode VideoRotationType, eligibleCount int) bool {
	if a.RotationState < 0 {
		a.RotationState = 0
	}
	switch mode {
	case VideoRotationSequential:
		next := a.RotationState + 1
		if last := eligibleCount - 1; next > last {
			next = max(last, 0)
		}
		if next == a.RotationState {
			return false
		}
		a.RotationState = next
		return true
	case VideoRotationCyclic:
		a.RotationState++
		return true
	}
	return false
}
