package arcontent

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/internal/selection"
)

// ErrInvalidRule is returned for rotation rules that cannot be stored.
var ErrInvalidRule = errors.New("invalid rotation rule")

// ValidateRule checks a rule against the item's videos before it is stored.
// Every referenced video must belong to the item.
func ValidateRule(rule *models.RotationRule, videos []models.Video) error {
	if !rule.RotationType.Valid() {
		return fmt.Errorf("%w: unknown rotation_type %q", ErrInvalidRule, rule.RotationType)
	}
	owned := make(map[uuid.UUID]bool, len(videos))
	for _, v := range videos {
		owned[v.ID] = true
	}
	if rule.DefaultVideoID != nil && !owned[*rule.DefaultVideoID] {
		return fmt.Errorf("%w: default_video_id %s is not a video of this item", ErrInvalidRule, rule.DefaultVideoID)
	}
	for i, id := range rule.VideoSequence {
		if !owned[id] {
			return fmt.Errorf("%w: video_sequence[%d] %s is not a video of this item", ErrInvalidRule, i, id)
		}
	}
	for i, dr := range rule.DateRules {
		if _, err := selection.ParseDateRule(dr); err != nil {
			return fmt.Errorf("%w: date_rules[%d]: %v", ErrInvalidRule, i, err)
		}
		if !owned[dr.VideoID] {
			return fmt.Errorf("%w: date_rules[%d] video %s is not a video of this item", ErrInvalidRule, i, dr.VideoID)
		}
	}

	switch rule.RotationType {
	case models.RotationRuleFixed:
		if rule.DefaultVideoID == nil {
			return fmt.Errorf("%w: fixed rule requires default_video_id", ErrInvalidRule)
		}
	case models.RotationRuleDateSpecific:
		if len(rule.DateRules) == 0 {
			return fmt.Errorf("%w: date_specific rule requires date_rules", ErrInvalidRule)
		}
	case models.RotationRuleDailyCycle, models.RotationRuleWeeklyCycle, models.RotationRuleRandomDaily:
		if len(rule.VideoSequence) == 0 {
			return fmt.Errorf("%w: %s rule requires video_sequence", ErrInvalidRule, rule.RotationType)
		}
	}
	return nil
}
