package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryResponseCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryResponseCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, ok, err := c.Get(ctx, FeedKey); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	body := []byte(`[{"id":1}]`)
	if err := c.Set(ctx, FeedKey, body, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	body[0] = 'x'

	got, ok, err := c.Get(ctx, FeedKey)
	if err != nil || !ok || string(got) != `[{"id":1}]` {
		t.Fatalf("unexpected hit: %q ok=%v err=%v", got, ok, err)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, FeedKey); ok {
		t.Fatal("entry should expire after its ttl")
	}

	_ = c.Set(ctx, FeedKey, body, 0)
	if _, ok, _ := c.Get(ctx, FeedKey); !ok {
		t.Fatal("zero ttl should never expire")
	}
}

func TestMemoryResponseCacheGenerations(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryResponseCache()

	gen, err := c.Generation(ctx, FeedKey)
	if err != nil || gen != 0 {
		t.Fatalf("expected generation 0, got %d err=%v", gen, err)
	}
	_ = c.Set(ctx, Versioned(FeedKey, gen), []byte("old"), 0)

	// A reader that loaded data under generation 0 writes after the bump.
	next, err := c.Bump(ctx, FeedKey)
	if err != nil || next != 1 {
		t.Fatalf("expected generation 1, got %d err=%v", next, err)
	}
	if _, ok, _ := c.Get(ctx, Versioned(FeedKey, 0)); ok {
		t.Fatal("bump should drop the retired entry")
	}
	_ = c.Set(ctx, Versioned(FeedKey, 0), []byte("late"), 0)

	if got, _ := c.Generation(ctx, FeedKey); got != 1 {
		t.Fatalf("expected generation 1, got %d", got)
	}
	if _, ok, _ := c.Get(ctx, Versioned(FeedKey, 1)); ok {
		t.Fatal("late write must not be visible under the current generation")
	}

	_ = c.Set(ctx, "other:0", []byte("keep"), 0)
	if _, err := c.Bump(ctx, FeedKey); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if _, ok, _ := c.Get(ctx, Versioned(FeedKey, 0)); ok {
		t.Fatal("bump should also drop late writes under older generations")
	}
	if _, ok, _ := c.Get(ctx, "other:0"); !ok {
		t.Fatal("bump must leave other names alone")
	}
}

func TestVersioned(t *testing.T) {
	if got := Versioned(FeedKey, 7); got != "feed:videos:7" {
		t.Fatalf("unexpected versioned key %q", got)
	}
	if generationKey(FeedKey) == Versioned(FeedKey, 0) {
		t.Fatal("generation counter must not share a key with an entry")
	}
}

func TestRedisResponseCacheReportsUnavailableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisResponseCache(client, "vidfeed")

	if c.key(FeedKey) != "vidfeed:feed:videos" {
		t.Fatalf("unexpected namespaced key %q", c.key(FeedKey))
	}
	if _, _, err := c.Get(context.Background(), FeedKey); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
	if err := c.Set(context.Background(), FeedKey, []byte("x"), time.Second); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
	if _, err := c.Generation(context.Background(), FeedKey); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
	if _, err := c.Bump(context.Background(), FeedKey); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
}
