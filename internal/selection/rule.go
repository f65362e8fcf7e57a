package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/pkg/seededrand"
)

// ruleInput is what every rule variant evaluates against.
type ruleInput struct {
	item      *models.ARContent
	checkDate time.Time
	now       time.Time
}

// rulePolicy is one rotation rule variant. Each variant carries only the fields it reads.
type rulePolicy interface {
	pick(ctx context.Context, s *Selector, in ruleInput) *models.Video
}

type fixedPolicy struct {
	defaultID *uuid.UUID
}

type dateSpecificPolicy struct {
	dateRules []models.DateRule
	defaultID *uuid.UUID
}

type dailyCyclePolicy struct {
	sequence []uuid.UUID
}

type weeklyCyclePolicy struct {
	sequence []uuid.UUID
}

type randomDailyPolicy struct {
	seed     string
	sequence []uuid.UUID
}

// policyFor maps a stored rule onto its variant. Unknown types behave like fixed.
func policyFor(rule *models.RotationRule) rulePolicy {
	switch rule.RotationType {
	case models.RotationRuleDateSpecific:
		return dateSpecificPolicy{dateRules: rule.DateRules, defaultID: rule.DefaultVideoID}
	case models.RotationRuleDailyCycle:
		return dailyCyclePolicy{sequence: rule.VideoSequence}
	case models.RotationRuleWeeklyCycle:
		return weeklyCyclePolicy{sequence: rule.VideoSequence}
	case models.RotationRuleRandomDaily:
		seed := ""
		if rule.RandomSeed != nil {
			seed = *rule.RandomSeed
		}
		return randomDailyPolicy{seed: seed, sequence: rule.VideoSequence}
	default:
		return fixedPolicy{defaultID: rule.DefaultVideoID}
	}
}

// EvaluateRule applies the rule's rotation type at checkDate and returns the selected video
// if it is eligible at now.
func (s *Selector) EvaluateRule(ctx context.Context, item *models.ARContent, rule *models.RotationRule, checkDate, now time.Time) *models.Video {
	if rule == nil {
		return nil
	}
	return policyFor(rule).pick(ctx, s, ruleInput{item: item, checkDate: checkDate, now: now})
}

func (p fixedPolicy) pick(ctx context.Context, s *Selector, in ruleInput) *models.Video {
	if p.defaultID == nil {
		return nil
	}
	return s.resolveEligible(ctx, in.item, *p.defaultID, in.now)
}

func (p dateSpecificPolicy) pick(ctx context.Context, s *Selector, in ruleInput) *models.Video {
	if v := s.matchDateRules(ctx, in.item, p.dateRules, in.checkDate, in.now); v != nil {
		return v
	}
	return fixedPolicy{defaultID: p.defaultID}.pick(ctx, s, in)
}

func (p dailyCyclePolicy) pick(ctx context.Context, s *Selector, in ruleInput) *models.Video {
	if len(p.sequence) == 0 {
		return nil
	}
	idx := DailyCycleIndex(in.checkDate, len(p.sequence))
	return s.resolveEligible(ctx, in.item, p.sequence[idx], in.now)
}

func (p weeklyCyclePolicy) pick(ctx context.Context, s *Selector, in ruleInput) *models.Video {
	if len(p.sequence) == 0 {
		return nil
	}
	idx := WeeklyCycleIndex(in.checkDate, len(p.sequence))
	return s.resolveEligible(ctx, in.item, p.sequence[idx], in.now)
}

func (p randomDailyPolicy) pick(ctx context.Context, s *Selector, in ruleInput) *models.Video {
	var (
		pool    []*models.Video
		weights []int
	)
	for _, id := range p.sequence {
		v := s.resolveEligible(ctx, in.item, id, in.now)
		if v == nil {
			continue
		}
		w := v.RotationWeight
		if w <= 0 {
			w = 1
		}
		pool = append(pool, v)
		weights = append(weights, w)
	}
	if len(pool) == 0 {
		return nil
	}
	g := seededrand.NewFromString(RandomDailyKey(p.seed, in.checkDate))
	idx := g.WeightedIndex(weights)
	if idx < 0 {
		return nil
	}
	return pool[idx]
}

// DailyCycleIndex is (day_of_year - 1) mod n.
func DailyCycleIndex(checkDate time.Time, n int) int {
	return (checkDate.YearDay() - 1) % n
}

// WeeklyCycleIndex is weekday mod n with Monday = 0 and Sunday = 6.
func WeeklyCycleIndex(checkDate time.Time, n int) int {
	weekday := (int(checkDate.Weekday()) + 6) % 7
	return weekday % n
}

// RandomDailyKey is the generator key for random_daily: "<seed or default>_<YYYY-MM-DD>".
func RandomDailyKey(seed string, checkDate time.Time) string {
	if seed == "" {
		seed = "default"
	}
	return fmt.Sprintf("%s_%s", seed, checkDate.Format(isoDateLayout))
}
