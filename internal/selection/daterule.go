package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/models"
)

// ErrMalformedDateRule is returned by ParseDateRule for entries whose date cannot be read.
var ErrMalformedDateRule = errors.New("malformed date rule")

const (
	isoDateLayout  = "2006-01-02"
	monthDayLayout = "01-02"
)

// DateMatcher is a parsed date-rule entry.
type DateMatcher struct {
	Month     time.Month
	Day       int
	Year      int
	Recurring bool
}

// ParseDateRule validates a date-rule entry. Exact entries need YYYY-MM-DD;
// recurring entries also accept MM-DD.
func ParseDateRule(dr models.DateRule) (DateMatcher, error) {
	if t, err := time.Parse(isoDateLayout, dr.Date); err == nil {
		return DateMatcher{Month: t.Month(), Day: t.Day(), Year: t.Year(), Recurring: dr.Recurring}, nil
	}
	if dr.Recurring {
		if t, err := time.Parse(monthDayLayout, dr.Date); err == nil {
			return DateMatcher{Month: t.Month(), Day: t.Day(), Recurring: true}, nil
		}
	}
	return DateMatcher{}, fmt.Errorf("%w: %q", ErrMalformedDateRule, dr.Date)
}

// Matches reports whether checkDate falls on the entry's date.
func (m DateMatcher) Matches(checkDate time.Time) bool {
	y, mo, d := checkDate.Date()
	if mo != m.Month || d != m.Day {
		return false
	}
	return m.Recurring || y == m.Year
}

// MatchDateRule walks the rule's date entries in order and returns the video of the first
// entry that matches checkDate and is eligible at now. Malformed entries are skipped.
func (s *Selector) MatchDateRule(ctx context.Context, item *models.ARContent, rule *models.RotationRule, checkDate, now time.Time) *models.Video {
	if rule == nil {
		return nil
	}
	return s.matchDateRules(ctx, item, rule.DateRules, checkDate, now)
}

func (s *Selector) matchDateRules(ctx context.Context, item *models.ARContent, entries []models.DateRule, checkDate, now time.Time) *models.Video {
	for _, entry := range entries {
		matcher, err := ParseDateRule(entry)
		if err != nil {
			s.logger.Warn("skipping date rule",
				zap.String("ar_content_id", item.ID.String()),
				zap.String("date", entry.Date),
				zap.Error(err))
			continue
		}
		if !matcher.Matches(checkDate) {
			continue
		}
		if v := s.resolveEligible(ctx, item, entry.VideoID, now); v != nil {
			return v
		}
	}
	return nil
}
