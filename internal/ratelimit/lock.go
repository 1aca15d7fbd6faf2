package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/offsession/internal/config"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const keyIntentLock = "offsession:lock:intent:"

const defaultLockTTL = 30 * time.Second

// Locker is a single-holder redis lock keyed by payment intent. A nil
// Locker always grants the lock.
type Locker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func NewLocker(cfg config.Config, client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	ttl := cfg.RateLimit.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
	}
}

// Acquire takes the lock for paymentIntentID. When acquired is false another
// holder owns it; release is always safe to call.
func (l *Locker) Acquire(ctx context.Context, paymentIntentID string) (release func(context.Context), acquired bool, err error) {
	noop := func(context.Context) {}
	if l == nil || l.client == nil {
		return noop, true, nil
	}
	if paymentIntentID == "" {
		return noop, false, errors.New("lock key is empty")
	}

	key := keyIntentLock + paymentIntentID
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return noop, false, err
	}
	if !ok {
		return noop, false, nil
	}
	return func(ctx context.Context) {
		_ = l.script.Run(ctx, l.client, []string{key}, token).Err()
	}, true, nil
}
