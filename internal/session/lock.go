package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("session lock not acquired")

// Locker serializes the load-transition-save sequence per session key so
// rapid deliveries for the same address cannot interleave.
type Locker interface {
	WithSessionLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type redisSessionLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionLocker creates a locker backed by a per session-key Redis key.
func NewRedisSessionLocker(client *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &redisSessionLocker{client: client, ttl: ttl}
}

func (l *redisSessionLocker) WithSessionLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lockKey := "lock:session:" + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("session: acquire lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, lockKey, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

var lockReleaseScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSessionLocker) release(ctx context.Context, key, token string) error {
	_, err := lockReleaseScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: release lock: %w", err)
	}
	return nil
}

// NoopLocker runs the callback without any cross-process coordination, for
// deployments that rely on the provider's per-conversation ordering.
type NoopLocker struct{}

func (NoopLocker) WithSessionLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
