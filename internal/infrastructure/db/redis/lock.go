package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/core/domain"
)

const (
	defaultLockTTL  = 10 * time.Second
	defaultLockWait = 3 * time.Second
	lockRetryEvery  = 50 * time.Millisecond
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-instance Redis mutex (SET NX PX plus a token-checked
// release). It serialises tariff limit checks across API replicas.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	log    zerolog.Logger
}

// NewLocker returns a Locker whose locks expire after ttl. Acquire gives up
// with domain.ErrBusy after wait.
func NewLocker(client *redis.Client, ttl, wait time.Duration, log zerolog.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &Locker{client: client, ttl: ttl, wait: wait, log: log}
}

func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := lockKey(key)

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockRetryEvery)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			l.log.Warn().Str("key", key).Dur("waited", l.wait).Msg("lock still held, giving up")
			return nil, domain.ErrBusy
		case <-ticker.C:
		}
	}
}

// release runs on a fresh context so a cancelled request still frees the lock.
func (l *Locker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
		l.log.Warn().Err(err).Str("key", redisKey).Msg("failed to release lock")
	}
}

func lockKey(key string) string {
	return "lock:" + key
}
