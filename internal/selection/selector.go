package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/models"
)

// ErrARContentNotFound is the only error a selection reports for missing data.
var ErrARContentNotFound = errors.New("ar content not found")

// Source identifies the layer that produced a selection.
type Source string

const (
	SourceDateRule      Source = "date_rule"
	SourceSchedule      Source = "schedule"
	SourceRotationRule  Source = "rotation_rule"
	SourceActiveDefault Source = "active_default"
	SourceRotation      Source = "rotation"
	SourceFallback      Source = "fallback"
)

// Selection is the winning video plus provenance.
type Selection struct {
	Video         *models.Video `json:"video"`
	Source        Source        `json:"source"`
	ScheduleID    *uuid.UUID    `json:"schedule_id,omitempty"`
	ExpiresInDays *int          `json:"expires_in_days,omitempty"`
	CheckDate     time.Time     `json:"check_date"`
}

// Option configures a Selector.
type Option func(*Selector)

// WithLocker wraps the legacy rotation read-evaluate-advance in a per-item lock.
func WithLocker(l Locker) Option {
	return func(s *Selector) { s.locker = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Selector) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Selector runs the priority chain for one AR content item per call.
type Selector struct {
	content ContentRepository
	rules   RuleRepository
	clock   Clock
	locker  Locker
	metrics Metrics
	logger  *zap.Logger
}

// NewSelector creates a selector. A nil clock uses the UTC system clock.
func NewSelector(content ContentRepository, rules RuleRepository, clock Clock, logger *zap.Logger, opts ...Option) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = NewSystemClock(time.UTC)
	}
	s := &Selector{content: content, rules: rules, clock: clock, metrics: nopMetrics{}, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectActiveVideo picks the video to serve for the item. overrideDate replaces today's date
// for calendar layers; the instant used for expiry and schedule windows is always the clock's.
// It returns nil, nil when no video is playable.
func (s *Selector) SelectActiveVideo(ctx context.Context, arContentID uuid.UUID, overrideDate *time.Time) (*Selection, error) {
	return s.run(ctx, arContentID, overrideDate, true)
}

// PreviewActiveVideo runs the same chain without advancing legacy rotation.
func (s *Selector) PreviewActiveVideo(ctx context.Context, arContentID uuid.UUID, date *time.Time) (*Selection, error) {
	return s.run(ctx, arContentID, date, false)
}

func (s *Selector) run(ctx context.Context, arContentID uuid.UUID, overrideDate *time.Time, advance bool) (*Selection, error) {
	started := time.Now()
	now := s.clock.Now()
	checkDate := s.clock.Today()
	if overrideDate != nil {
		checkDate = DateOf(*overrideDate)
	}

	item, err := s.content.GetARContent(ctx, arContentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrARContentNotFound
		}
		return nil, fmt.Errorf("get ar content: %w", err)
	}

	sel := s.chain(ctx, item, checkDate, now, advance)
	if sel == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.metrics.ObserveNoVideo(time.Since(started))
		return nil, nil
	}
	sel.CheckDate = checkDate
	sel.ExpiresInDays = DaysRemaining(sel.Video, now)
	s.metrics.ObserveSelection(sel.Source, time.Since(started))
	return sel, nil
}

func (s *Selector) chain(ctx context.Context, item *models.ARContent, checkDate, now time.Time, advance bool) *Selection {
	rule, err := s.rules.GetActiveRotationRule(ctx, item.ID)
	if err != nil {
		s.logger.Warn("load rotation rule failed", zap.String("ar_content_id", item.ID.String()), zap.Error(err))
		rule = nil
	}

	if v := s.MatchDateRule(ctx, item, rule, checkDate, now); v != nil {
		return &Selection{Video: v, Source: SourceDateRule}
	}
	if v, scheduleID := s.FindScheduledVideo(ctx, item, now); v != nil {
		return &Selection{Video: v, Source: SourceSchedule, ScheduleID: scheduleID}
	}
	if v := s.EvaluateRule(ctx, item, rule, checkDate, now); v != nil {
		return &Selection{Video: v, Source: SourceRotationRule}
	}
	if item.ActiveVideoID != nil {
		if v := s.resolveEligible(ctx, item, *item.ActiveVideoID, now); v != nil {
			return &Selection{Video: v, Source: SourceActiveDefault}
		}
	}

	videos, err := s.content.ListVideos(ctx, item.ID)
	if err != nil {
		s.logger.Warn("list videos failed", zap.String("ar_content_id", item.ID.String()), zap.Error(err))
		return nil
	}
	eligible := EligibleVideos(videos, now)
	if len(eligible) == 0 {
		return nil
	}

	switch mode := EffectiveRotationMode(eligible); mode {
	case models.VideoRotationSequential, models.VideoRotationCyclic:
		if v := s.legacyRotation(ctx, item, eligible, mode, advance); v != nil {
			return &Selection{Video: v, Source: SourceRotation}
		}
	}

	v := eligible[0]
	return &Selection{Video: &v, Source: SourceFallback}
}

// legacyRotation picks by cursor and, when advance is set, moves the cursor once.
// With a locker the item is re-read under the lock so concurrent calls do not lose updates.
func (s *Selector) legacyRotation(ctx context.Context, item *models.ARContent, eligible []models.Video, mode models.VideoRotationType, advance bool) *models.Video {
	if !advance {
		return NextLegacyVideo(item, eligible)
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "rotation:"+item.ID.String())
		if err != nil {
			s.metrics.ObserveLockFailure()
			s.logger.Warn("rotation lock unavailable, advancing without lock",
				zap.String("ar_content_id", item.ID.String()), zap.Error(err))
		} else {
			defer unlock()
			fresh, err := s.content.GetARContent(ctx, item.ID)
			if err != nil {
				s.logger.Warn("reload ar content under lock failed", zap.String("ar_content_id", item.ID.String()), zap.Error(err))
			} else {
				item = fresh
			}
		}
	}

	v := NextLegacyVideo(item, eligible)
	if v == nil {
		return nil
	}
	if item.AdvanceRotation(mode, len(eligible)) {
		persisted := true
		if err := s.content.PersistRotationAdvance(ctx, item.ID, item.RotationState); err != nil {
			persisted = false
			s.logger.Error("persist rotation advance failed",
				zap.String("ar_content_id", item.ID.String()),
				zap.Int("rotation_state", item.RotationState),
				zap.Error(err))
		}
		s.metrics.ObserveRotationAdvance(mode, persisted)
	}
	return v
}

// resolveEligible loads a referenced video and returns it only if it belongs to the item
// and is eligible at now. Anything else is a dangling reference and yields nil.
func (s *Selector) resolveEligible(ctx context.Context, item *models.ARContent, videoID uuid.UUID, now time.Time) *models.Video {
	v, err := s.content.GetVideo(ctx, videoID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("get video failed", zap.String("video_id", videoID.String()), zap.Error(err))
		} else {
			s.logger.Debug("dangling video reference", zap.String("ar_content_id", item.ID.String()), zap.String("video_id", videoID.String()))
		}
		return nil
	}
	if v == nil || v.ARContentID != item.ID || !Eligible(v, now) {
		s.logger.Debug("referenced video not eligible", zap.String("ar_content_id", item.ID.String()), zap.String("video_id", videoID.String()))
		return nil
	}
	return v
}
