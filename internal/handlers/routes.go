package handlers

import (
	"net/http"
	"time"

	"github.com/vidfriends/vidfeed/internal/cache"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	store := StoreHandler{
		Videos:       deps.Videos,
		Engagement:   deps.Engagement,
		Users:        deps.Users,
		Media:        deps.Media,
		Cache:        deps.Cache,
		CacheTTL:     deps.CacheTTL,
		Limiter:      deps.Limiter,
		MaxBodyBytes: deps.MaxBodyBytes,
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.Handle("/api", store)
	mux.Handle("/api/", store)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	DB           Pinger
	Videos       VideoStore
	Engagement   EngagementStore
	Users        UserStore
	Media        MediaResolver
	Cache        cache.ResponseCache
	CacheTTL     time.Duration
	Limiter      RateLimiter
	MaxBodyBytes int64
}
