package locking

import (
	"context"
	"fmt"
	"time"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockRetry = 25 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlotLocker is an advisory lock shared by every server instance
// pointing at the same Redis.
type RedisSlotLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
}

func NewRedisSlotLocker(rdb *redis.Client) *RedisSlotLocker {
	return &RedisSlotLocker{rdb: rdb, ttl: defaultLockTTL, retry: defaultLockRetry}
}

func (l *RedisSlotLocker) Lock(ctx context.Context, section models.Section, date string) (func(), error) {
	key := Key(section, date)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire slot lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	return func() {
		// Release with a fresh context: the request context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
			logger.WithComponent("locking").WithError(err).WithField("key", key).Warn("Failed to release slot lock")
		}
	}, nil
}
