package arcontent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/vertex-ar/backend/internal/models"
)

// RuleStore is the persistence the rule cache decorates.
type RuleStore interface {
	GetActiveRotationRule(ctx context.Context, arContentID uuid.UUID) (*models.RotationRule, error)
	GetOpenSchedules(ctx context.Context, arContentID uuid.UUID, now time.Time) ([]models.ScheduledVideo, error)
	GetSchedulesForVideo(ctx context.Context, videoID uuid.UUID) ([]models.VideoSchedule, error)
	ReplaceActiveRule(ctx context.Context, rule *models.RotationRule) error
	DeactivateRules(ctx context.Context, arContentID uuid.UUID) (int64, error)
	CreateSchedule(ctx context.Context, s *models.VideoSchedule) error
}

// noRule marks a cached "item has no active rule" answer.
type noRule struct{}

// CachedRuleStore caches active rule lookups per item. Writes through it invalidate the entry.
type CachedRuleStore struct {
	RuleStore
	cache *cache.Cache
}

// NewCachedRuleStore wraps store with a TTL cache. A ttl <= 0 returns store unchanged.
func NewCachedRuleStore(store RuleStore, ttl time.Duration) RuleStore {
	if ttl <= 0 {
		return store
	}
	return &CachedRuleStore{RuleStore: store, cache: cache.New(ttl, 2*ttl)}
}

func ruleCacheKey(arContentID uuid.UUID) string {
	return "rule:" + arContentID.String()
}

// GetActiveRotationRule returns a copy of the cached rule, loading it on miss. Errors are not cached.
func (c *CachedRuleStore) GetActiveRotationRule(ctx context.Context, arContentID uuid.UUID) (*models.RotationRule, error) {
	key := ruleCacheKey(arContentID)
	if v, ok := c.cache.Get(key); ok {
		switch r := v.(type) {
		case noRule:
			return nil, nil
		case models.RotationRule:
			return &r, nil
		}
	}
	rule, err := c.RuleStore.GetActiveRotationRule(ctx, arContentID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		c.cache.SetDefault(key, noRule{})
		return nil, nil
	}
	c.cache.SetDefault(key, *rule)
	return rule, nil
}

// ReplaceActiveRule writes through and invalidates the item's entry.
func (c *CachedRuleStore) ReplaceActiveRule(ctx context.Context, rule *models.RotationRule) error {
	defer c.Invalidate(rule.ARContentID)
	return c.RuleStore.ReplaceActiveRule(ctx, rule)
}

// DeactivateRules writes through and invalidates the item's entry.
func (c *CachedRuleStore) DeactivateRules(ctx context.Context, arContentID uuid.UUID) (int64, error) {
	defer c.Invalidate(arContentID)
	return c.RuleStore.DeactivateRules(ctx, arContentID)
}

// Invalidate drops the cached rule for an item.
func (c *CachedRuleStore) Invalidate(arContentID uuid.UUID) {
	c.cache.Delete(ruleCacheKey(arContentID))
}
