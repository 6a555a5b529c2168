package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/QctheGithuber/seckillweb/seckill/domain"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotCache implementa domain.SnapshotCache com JSON + TTL.
//
// É um cache read-through comum: miss popula, o coordenador sobrescreve a
// entrada depois de um commit para que leitores vejam a contagem nova sem
// esperar o TTL. Payload corrompido é tratado como miss, nunca como erro.
type RedisSnapshotCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type CacheOption func(*RedisSnapshotCache)

func WithCachePrefix(prefix string) CacheOption {
	return func(c *RedisSnapshotCache) { c.prefix = prefix }
}

func WithCacheTTL(d time.Duration) CacheOption {
	return func(c *RedisSnapshotCache) { c.ttl = d }
}

func NewRedisSnapshotCache(rdb *redis.Client, opts ...CacheOption) *RedisSnapshotCache {
	c := &RedisSnapshotCache{
		rdb:    rdb,
		prefix: "seckill:cache",
		ttl:    1 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisSnapshotCache) key(resourceID int64) string {
	return fmt.Sprintf("%s:resource:%d", c.prefix, resourceID)
}

func (c *RedisSnapshotCache) Get(ctx context.Context, resourceID int64) (domain.ResourceSnapshot, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(resourceID)).Bytes()
	if err == redis.Nil {
		return domain.ResourceSnapshot{}, false, nil
	}
	if err != nil {
		return domain.ResourceSnapshot{}, false, fmt.Errorf("%w: read snapshot: %w", domain.ErrStoreUnavailable, err)
	}

	var snap domain.ResourceSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.ResourceSnapshot{}, false, nil
	}
	return snap, true, nil
}

func (c *RedisSnapshotCache) Put(ctx context.Context, snap domain.ResourceSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(snap.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: write snapshot: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
