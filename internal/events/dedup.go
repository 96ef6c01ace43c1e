package events

import (
	"context"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/cache"
)

// RedisDeduper implements Deduper with a SETNX per event id, TTL-bounded
// so the dedup set doesn't grow unbounded.
type RedisDeduper struct {
	cache *cache.Client
	ttl   time.Duration
}

func NewRedisDeduper(c *cache.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{cache: c, ttl: ttl}
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	added, err := d.cache.Raw.SetNX(ctx, "event:seen:"+eventID, "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !added, nil
}
