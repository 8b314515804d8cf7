package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// DedupeStore guards against duplicate notification dispatch when a
// presentation layer re-delivers the same admin action (double click,
// prefetched link). Once returns true the first time a key is claimed and
// false on every later attempt within the retention window.
type DedupeStore interface {
	Once(ctx context.Context, key string) (bool, error)
}

// RedisDedupe implements DedupeStore with SETNX and a TTL, so the guard
// works across process restarts and replicas.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedupe wraps a redis client. ttl bounds how long a dispatched
// notification suppresses duplicates.
func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	return &RedisDedupe{client: client, ttl: ttl}
}

// Once claims key atomically.
func (d *RedisDedupe) Once(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, "notify:"+key, 1, d.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "setnx")
	}
	return ok, nil
}

// MemoryDedupe is the in-process DedupeStore used in development and tests.
type MemoryDedupe struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDedupe creates an empty in-memory store.
func NewMemoryDedupe() *MemoryDedupe {
	return &MemoryDedupe{seen: make(map[string]struct{})}
}

// Once claims key under the store mutex.
func (d *MemoryDedupe) Once(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}
