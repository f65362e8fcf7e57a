package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lockPrefix         = "lock:"
	defaultLockTTL     = 2 * time.Second
	defaultRetryPeriod = 25 * time.Millisecond
	releaseTimeout     = time.Second
)

// ErrLockNotAcquired is returned when the lock is still held by someone else after the wait.
var ErrLockNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockConfig tunes lock acquisition.
type LockConfig struct {
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// Wait is how long Lock keeps retrying before giving up. Zero means a single attempt.
	Wait time.Duration
	// Retry is the pause between attempts.
	Retry time.Duration
}

// Locker is a SET NX PX based mutex keyed by string.
type Locker struct {
	client *redis.Client
	cfg    LockConfig
	logger *zap.Logger
}

// NewLocker creates a Redis-backed locker.
func NewLocker(client *redis.Client, cfg LockConfig, logger *zap.Logger) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultLockTTL
	}
	if cfg.Retry <= 0 {
		cfg.Retry = defaultRetryPeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locker{client: client, cfg: cfg, logger: logger}
}

// Lock acquires key, retrying until the configured wait elapses or ctx is done.
// The returned unlock releases the lock only if it is still ours.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Wait)
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("setnx %s: %w", redisKey, err)
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockNotAcquired
		}
		timer := time.NewTimer(l.cfg.Retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
		l.logger.Warn("lock release failed", zap.String("key", redisKey), zap.Error(err))
	}
}
