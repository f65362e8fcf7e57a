package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/internal/selection"
)

var (
	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vertexar",
		Name:      "video_selections_total",
		Help:      "Total video selections by winning layer",
	}, []string{"source"})

	noVideoTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vertexar",
		Name:      "video_selection_empty_total",
		Help:      "Selections that found no playable content",
	})

	selectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vertexar",
		Name:      "video_selection_duration_seconds",
		Help:      "Duration of the selection priority chain",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	rotationAdvancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vertexar",
		Name:      "rotation_advances_total",
		Help:      "Legacy rotation cursor advances by mode and persistence outcome",
	}, []string{"mode", "persisted"})

	rotationLockFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vertexar",
		Name:      "rotation_lock_failures_total",
		Help:      "Rotation lock acquisitions that failed and fell back to unlocked evaluation",
	})

	expiryNoticesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vertexar",
		Name:      "expiry_notices_total",
		Help:      "Video expiry notices by status and outcome",
	}, []string{"status", "outcome"})
)

// Selection records selection engine outcomes.
type Selection struct{}

var _ selection.Metrics = Selection{}

func (Selection) ObserveSelection(source selection.Source, elapsed time.Duration) {
	selectionsTotal.WithLabelValues(normalizeSource(source)).Inc()
	selectionDuration.Observe(elapsed.Seconds())
}

func (Selection) ObserveNoVideo(elapsed time.Duration) {
	noVideoTotal.Inc()
	selectionDuration.Observe(elapsed.Seconds())
}

func (Selection) ObserveRotationAdvance(mode models.VideoRotationType, persisted bool) {
	m := string(mode)
	if !mode.Valid() {
		m = "unknown"
	}
	rotationAdvancesTotal.WithLabelValues(m, strconv.FormatBool(persisted)).Inc()
}

func (Selection) ObserveLockFailure() {
	rotationLockFailuresTotal.Inc()
}

// RecordExpiryNotice counts a notice outcome: enqueued, duplicate, published, or failed.
func RecordExpiryNotice(status, outcome string) {
	expiryNoticesTotal.WithLabelValues(status, outcome).Inc()
}

func normalizeSource(s selection.Source) string {
	switch s {
	case selection.SourceDateRule, selection.SourceSchedule, selection.SourceRotationRule,
		selection.SourceActiveDefault, selection.SourceRotation, selection.SourceFallback:
		return string(s)
	default:
		return "unknown"
	}
}
