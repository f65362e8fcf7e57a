package selection

import (
	"sort"
	"time"

	"github.com/vertex-ar/backend/internal/models"
)

// EligibleVideos filters videos to those eligible at now, ordered by rotation_order then id.
func EligibleVideos(videos []models.Video, now time.Time) []models.Video {
	out := make([]models.Video, 0, len(videos))
	for i := range videos {
		if Eligible(&videos[i], now) {
			out = append(out, videos[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RotationOrder != out[j].RotationOrder {
			return out[i].RotationOrder < out[j].RotationOrder
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// EffectiveRotationMode is the item's legacy rotation mode. It is derived from the first
// eligible video, not stored on the item.
func EffectiveRotationMode(eligible []models.Video) models.VideoRotationType {
	if len(eligible) == 0 {
		return models.VideoRotationNone
	}
	return eligible[0].RotationType
}

// NextLegacyVideo picks from the ordered eligible list using the item's rotation cursor.
// A single eligible video is returned regardless of mode.
func NextLegacyVideo(item *models.ARContent, eligible []models.Video) *models.Video {
	if len(eligible) == 0 {
		return nil
	}
	if len(eligible) == 1 {
		return &eligible[0]
	}
	state := item.RotationState
	if state < 0 {
		state = 0
	}
	idx := 0
	switch EffectiveRotationMode(eligible) {
	case models.VideoRotationSequential:
		idx = min(state, len(eligible)-1)
	case models.VideoRotationCyclic:
		idx = state % len(eligible)
	}
	return &eligible[idx]
}
