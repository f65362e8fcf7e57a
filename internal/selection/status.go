package selection

import (
	"time"

	"github.com/vertex-ar/backend/internal/models"
)

// Status is the lifecycle state of a video's subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
	StatusInactive Status = "inactive"
)

// ExpiringWithinDays is the horizon at which an active subscription is reported as expiring.
const ExpiringWithinDays = 7

const day = 24 * time.Hour

// VideoStatus computes the lifecycle status of v at now.
func VideoStatus(v *models.Video, now time.Time) Status {
	if v == nil || !v.IsActive {
		return StatusInactive
	}
	if v.SubscriptionEnd == nil {
		return StatusActive
	}
	if !v.SubscriptionEnd.After(now) {
		return StatusExpired
	}
	if days := *DaysRemaining(v, now); days <= ExpiringWithinDays {
		return StatusExpiring
	}
	return StatusActive
}

// DaysRemaining returns whole days until the subscription ends, 0 once it has ended,
// and nil when the video has no subscription end.
func DaysRemaining(v *models.Video, now time.Time) *int {
	if v == nil || v.SubscriptionEnd == nil {
		return nil
	}
	days := 0
	if left := v.SubscriptionEnd.Sub(now); left > 0 {
		days = int(left / day)
	}
	return &days
}

// Eligible reports whether v may be served at now: active and not expired.
func Eligible(v *models.Video, now time.Time) bool {
	if v == nil || !v.IsActive {
		return false
	}
	return v.SubscriptionEnd == nil || v.SubscriptionEnd.After(now)
}
