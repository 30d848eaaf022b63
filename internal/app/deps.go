package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidfriends/vidfeed/internal/cache"
	"github.com/vidfriends/vidfeed/internal/config"
	"github.com/vidfriends/vidfeed/internal/db"
	"github.com/vidfriends/vidfeed/internal/handlers"
	"github.com/vidfriends/vidfeed/internal/middleware"
	"github.com/vidfriends/vidfeed/internal/repositories"
	"github.com/vidfriends/vidfeed/internal/storage"
)

const rateLimitTTL = 10 * time.Minute

// buildDependencies wires the concrete implementations behind the store
// endpoint. The returned cleanup releases connections opened here.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	deps := handlers.Dependencies{
		DB:         pool,
		Videos:     repositories.NewPostgresVideoRepository(pool),
		Engagement: repositories.NewPostgresEngagementRepository(pool),
		Users:      repositories.NewPostgresUserRepository(pool),
		CacheTTL:   cfg.FeedCacheTTL,
		Limiter: middleware.NewIPRateLimiter(
			cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, rateLimitTTL,
		),
	}
	cleanup := func(context.Context) error { return nil }

	var objects storage.MediaStorage
	if cfg.ObjectStore.Enabled() {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		objects = s3Storage
	}
	deps.Media = storage.NewOffloader(objects)

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.Cache = cache.NewRedisResponseCache(client, "vidfeed")
		cleanup = func(context.Context) error { return client.Close() }
	} else {
		deps.Cache = cache.NewMemoryResponseCache()
	}

	return deps, cleanup, nil
}
