package redisx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a named mutual-exclusion flag shared by every process using the
// same Redis.
type Lock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewLock returns a lock named name. The TTL bounds how long a crashed
// holder keeps it.
func NewLock(rdb *redis.Client, name string, ttl time.Duration) *Lock {
	return &Lock{rdb: rdb, key: fmt.Sprintf(KeyLock, name), ttl: ttl}
}

// TryAcquire takes the lock if it is free. The returned release func is nil
// when the lock is held elsewhere.
func (l *Lock) TryAcquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring %s: %w", l.key, err)
	}
	if !ok {
		return nil, nil
	}
	return l.releaseFunc(token), nil
}

// releaseFunc deletes the lock if it still holds token. A failure leaves
// the lock to expire after its TTL.
func (l *Lock) releaseFunc(token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
			slog.Warn("releasing lock", "key", l.key, "ttl", l.ttl, "error", err)
		}
	}
}
