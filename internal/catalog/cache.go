package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/bookbin/internal/redisx"
)

// Cached serves found records from Redis and fills it on a miss.
// Redis failures fall through to the wrapped source.
type Cached struct {
	Source
	rdb *redis.Client
	ttl time.Duration
}

// NewCached wraps src with a Redis read-through cache.
func NewCached(src Source, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{Source: src, rdb: rdb, ttl: ttl}
}

func (c *Cached) Fetch(ctx context.Context, identifier string) (*Record, bool) {
	key := fmt.Sprintf(redisx.KeyCatalogRecord, c.Name(), identifier)

	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec Record
		if err := json.Unmarshal(b, &rec); err == nil {
			return &rec, true
		}
		slog.Warn("discarding corrupt catalog cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("catalog cache read failed", "key", key, "error", err)
	}

	rec, ok := c.Source.Fetch(ctx, identifier)
	if !ok {
		return nil, false
	}

	b, err = json.Marshal(rec)
	if err == nil {
		err = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	if err != nil {
		slog.Warn("catalog cache write failed", "key", key, "error", err)
	}
	return rec, true
}
