package bus

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper records that a keyed event fired so periodic jobs do not repeat it
// within the marker's lifetime.
type Deduper interface {
	// MarkIfFirst returns true when the key was not yet marked; the marker
	// expires after ttl.
	MarkIfFirst(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisDeduper struct {
	client *redis.Client
	prefix string
}

// NewRedisDeduper creates a SETNX-based deduper.
func NewRedisDeduper(client *redis.Client, prefix string) Deduper {
	return &redisDeduper{client: client, prefix: prefix}
}

func (d *redisDeduper) MarkIfFirst(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+key, "1", ttl).Result()
}
