package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL      = 10 * time.Minute
	defaultPollInterval = 100 * time.Millisecond
	lockKeyPrefix       = "studio:turn-lock:"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serializes turns across instances sharing one Redis. The TTL
// must exceed the longest expected turn; it only guards against crashed holders.
type RedisLocker struct {
	rdb          *redis.Client
	mode         LockMode
	ttl          time.Duration
	pollInterval time.Duration
}

func NewRedisLocker(rdb *redis.Client, mode LockMode, ttl time.Duration) *RedisLocker {
	if mode == "" {
		mode = LockModeQueue
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{rdb: rdb, mode: mode, ttl: ttl, pollInterval: defaultPollInterval}
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionId string) (func(), error) {
	key := lockKeyPrefix + sessionId
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("acquire turn lock: %w", err)
		}
		if ok {
			break
		}
		if l.mode == LockModeReject {
			return nil, ErrSessionBusy
		}

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the request context may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}
