package infra

import (
	"context"
	"testing"
	"time"

	"github.com/QctheGithuber/seckillweb/seckill/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, opts ...CacheOption) (*miniredis.Miniredis, *RedisSnapshotCache) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return m, NewRedisSnapshotCache(rdb, opts...)
}

func TestSnapshotCache_MissThenHit(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, 1); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	want := domain.ResourceSnapshot{ID: 1, Name: "show", Count: 9}
	if err := c.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestSnapshotCache_ExpiresAfterTTL(t *testing.T) {
	m, c := newTestCache(t, WithCacheTTL(1*time.Minute))
	ctx := context.Background()

	if err := c.Put(ctx, domain.ResourceSnapshot{ID: 1, Name: "show", Count: 9}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	m.FastForward(2 * time.Minute)

	if _, ok, err := c.Get(ctx, 1); err != nil || ok {
		t.Fatalf("expected miss after TTL, ok=%v err=%v", ok, err)
	}
}

func TestSnapshotCache_CorruptPayloadIsMiss(t *testing.T) {
	m, c := newTestCache(t)

	if err := m.Set("seckill:cache:resource:1", "not-json"); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	if _, ok, err := c.Get(context.Background(), 1); err != nil || ok {
		t.Fatalf("expected corrupt payload to read as miss, ok=%v err=%v", ok, err)
	}
}

func TestSnapshotCache_PutOverwrites(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	if err := c.Put(ctx, domain.ResourceSnapshot{ID: 1, Name: "show", Count: 9}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(ctx, domain.ResourceSnapshot{ID: 1, Name: "show", Count: 8}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.Count != 8 {
		t.Fatalf("expected overwritten count 8, got %d", got.Count)
	}
}
