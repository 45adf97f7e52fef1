package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache stores fully rendered responses for a bounded time window. It is
// handed to the handlers that need it rather than reached through a global,
// so tests and Redis-less deployments can swap the backing store.
type PageCache interface {
	GetBytes(key string) ([]byte, bool)
	SetBytes(key string, b []byte, ttl time.Duration)
	// Clear removes every entry whose key starts with prefix.
	Clear(prefix string)
}

// RedisPageCache backs PageCache with Redis.
type RedisPageCache struct {
	client *redis.Client
}

// NewRedisPageCache wraps an existing Redis client.
func NewRedisPageCache(client *redis.Client) *RedisPageCache {
	return &RedisPageCache{client: client}
}

func (c *RedisPageCache) GetBytes(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if Sugar != nil {
			Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisPageCache) SetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.client.Set(ctx, key, b, ttl).Err(); err != nil {
		if Sugar != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
	}
}

// Clear deletes keys matching the prefix using SCAN and pipelined DEL.
func (c *RedisPageCache) Clear(prefix string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := c.client.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}

type memoryEntry struct {
	b         []byte
	expiresAt time.Time
}

// MemoryPageCache is a process-local PageCache for tests and single-instance
// deployments without Redis.
type MemoryPageCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryPageCache() *MemoryPageCache {
	return &MemoryPageCache{entries: map[string]memoryEntry{}}
}

func (c *MemoryPageCache) GetBytes(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.b, true
}

func (c *MemoryPageCache) SetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{b: b, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryPageCache) Clear(prefix string) {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
