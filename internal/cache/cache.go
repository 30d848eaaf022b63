package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key names used by the store handler.
const (
	FeedKey = "feed:videos"
)

// ResponseCache stores rendered responses keyed by name. A miss is reported
// with ok == false and a nil error.
//
// Entries derived from mutable data are stored under Versioned(name, gen),
// where gen is read with Generation before the data is loaded. Bump retires
// every older generation, so a write that raced an invalidation lands under
// a key no reader asks for.
type ResponseCache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Generation returns the current generation of name, zero until the
	// first Bump.
	Generation(ctx context.Context, name string) (int64, error)
	// Bump advances the generation of name and drops the entry of the
	// generation it replaces.
	Bump(ctx context.Context, name string) (int64, error)
}

// Versioned is the key of name's entry at generation gen.
func Versioned(name string, gen int64) string {
	return name + ":" + strconv.FormatInt(gen, 10)
}

func generationKey(name string) string {
	return name + ":gen"
}

// RedisResponseCache is a ResponseCache backed by Redis.
type RedisResponseCache struct {
	client *redis.Client
	prefix string
}

// NewRedisResponseCache namespaces every key with prefix.
func NewRedisResponseCache(client *redis.Client, prefix string) *RedisResponseCache {
	return &RedisResponseCache{client: client, prefix: prefix}
}

func (c *RedisResponseCache) key(name string) string {
	if c.prefix == "" {
		return name
	}
	return c.prefix + ":" + name
}

func (c *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (c *RedisResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisResponseCache) Generation(ctx context.Context, name string) (int64, error) {
	gen, err := c.client.Get(ctx, c.key(generationKey(name))).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get generation %s: %w", name, err)
	}
	return gen, nil
}

func (c *RedisResponseCache) Bump(ctx context.Context, name string) (int64, error) {
	gen, err := c.client.Incr(ctx, c.key(generationKey(name))).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr generation %s: %w", name, err)
	}
	if err := c.client.Del(ctx, c.key(Versioned(name, gen-1))).Err(); err != nil {
		return gen, fmt.Errorf("redis del %s: %w", name, err)
	}
	return gen, nil
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryResponseCache is an in-process ResponseCache with per-entry TTLs.
type MemoryResponseCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	gens  map[string]int64
	now   func() time.Time
}

func NewMemoryResponseCache() *MemoryResponseCache {
	return &MemoryResponseCache{
		items: make(map[string]memoryEntry),
		gens:  make(map[string]int64),
		now:   time.Now,
	}
}

func (c *MemoryResponseCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || (!entry.expires.IsZero() && !c.now().Before(entry.expires)) {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (c *MemoryResponseCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryResponseCache) Generation(_ context.Context, name string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[name], nil
}

// Bump drops every entry of name older than the new generation, including
// ones written late by readers that lost a race with an earlier Bump.
func (c *MemoryResponseCache) Bump(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[name]++
	gen := c.gens[name]
	for key := range c.items {
		rest, ok := strings.CutPrefix(key, name+":")
		if !ok {
			continue
		}
		if old, err := strconv.ParseInt(rest, 10, 64); err == nil && old < gen {
			delete(c.items, key)
		}
	}
	return gen, nil
}

var (
	_ ResponseCache = (*RedisResponseCache)(nil)
	_ ResponseCache = (*MemoryResponseCache)(nil)
)
