package handlers

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/vidfriends/vidfeed/internal/auth"
	"github.com/vidfriends/vidfeed/internal/cache"
	"github.com/vidfriends/vidfeed/internal/feedstore"
	"github.com/vidfriends/vidfeed/internal/logging"
	"github.com/vidfriends/vidfeed/internal/media"
	"github.com/vidfriends/vidfeed/internal/models"
	"github.com/vidfriends/vidfeed/internal/repositories"
)

// DefaultMaxBodyBytes bounds request bodies, which carry inline media.
const DefaultMaxBodyBytes = 64 << 20

// StoreHandler serves the single feed store endpoint. The operation is
// selected by the path query parameter and the HTTP method.
type StoreHandler struct {
	Videos     VideoStore
	Engagement EngagementStore
	Users      UserStore
	Media      MediaResolver
	Cache      cache.ResponseCache
	CacheTTL   time.Duration
	Limiter    RateLimiter

	MaxBodyBytes int64
}

func (h StoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	if h.Videos == nil || h.Engagement == nil || h.Users == nil {
		logging.FromContext(ctx).Error("store dependencies unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "store unavailable")
		return
	}

	if r.Method != http.MethodGet && !allowRequest(h.Limiter, r, "store") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	path := r.URL.Query().Get("path")
	switch path {
	case feedstore.PathVideos:
		h.route(w, r, map[string]http.HandlerFunc{http.MethodGet: h.listVideos})
	case feedstore.PathLike:
		h.route(w, r, map[string]http.HandlerFunc{http.MethodPost: h.like, http.MethodDelete: h.unlike})
	case feedstore.PathComment:
		h.route(w, r, map[string]http.HandlerFunc{http.MethodPost: h.addComment})
	case feedstore.PathVideo:
		h.route(w, r, map[string]http.HandlerFunc{http.MethodPost: h.createVideo, http.MethodPut: h.updateThumbnail})
	case feedstore.PathUser:
		h.route(w, r, map[string]http.HandlerFunc{http.MethodGet: h.getUser, http.MethodPut: h.updateAvatar})
	default:
		respondError(ctx, w, http.StatusNotFound, "Unknown path")
	}
}

func (h StoreHandler) route(w http.ResponseWriter, r *http.Request, methods map[string]http.HandlerFunc) {
	handler, ok := methods[r.Method]
	if !ok {
		respondError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	handler(w, r)
}

func setCORSHeaders(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, If-None-Match, X-Request-Id")
	header.Set("Access-Control-Expose-Headers", "ETag")
	header.Set("Access-Control-Max-Age", "86400")
}

func (h StoreHandler) listVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	gen, cacheable := h.feedGeneration(r)
	var (
		body []byte
		ok   bool
	)
	if cacheable {
		body, ok = h.cachedFeed(r, gen)
	}
	if !ok {
		videos, err := h.Videos.ListFeed(ctx)
		if err != nil {
			logger.Error("list feed failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to load videos")
			return
		}
		body, err = json.Marshal(videos)
		if err != nil {
			logger.Error("encode feed failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to load videos")
			return
		}
		if cacheable {
			if err := h.Cache.Set(ctx, cache.Versioned(cache.FeedKey, gen), body, h.CacheTTL); err != nil {
				logger.Warn("feed cache write failed", "error", err)
			}
		}
	}

	etag := feedETag(body)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// feedGeneration reads the listing's cache generation. It must run before the
// repository read so a mutation landing in between retires what gets cached.
func (h StoreHandler) feedGeneration(r *http.Request) (int64, bool) {
	if h.Cache == nil {
		return 0, false
	}
	gen, err := h.Cache.Generation(r.Context(), cache.FeedKey)
	if err != nil {
		logging.FromContext(r.Context()).Warn("feed cache generation read failed", "error", err)
		return 0, false
	}
	return gen, true
}

func (h StoreHandler) cachedFeed(r *http.Request, gen int64) ([]byte, bool) {
	body, ok, err := h.Cache.Get(r.Context(), cache.Versioned(cache.FeedKey, gen))
	if err != nil {
		logging.FromContext(r.Context()).Warn("feed cache read failed", "error", err)
		return nil, false
	}
	return body, ok
}

// feedETag derives a strong validator from the rendered listing.
func feedETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func (h StoreHandler) like(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, true)
}

func (h StoreHandler) unlike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, false)
}

func (h StoreHandler) toggleLike(w http.ResponseWriter, r *http.Request, liked bool) {
	ctx := r.Context()

	var req feedstore.LikeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.VideoID <= 0 {
		respondError(ctx, w, http.StatusBadRequest, "video_id is required")
		return
	}
	userID := actor(req.UserID)

	var (
		changed bool
		err     error
	)
	if liked {
		changed, err = h.Engagement.Like(ctx, req.VideoID, userID)
	} else {
		changed, err = h.Engagement.Unlike(ctx, req.VideoID, userID)
	}
	if err != nil {
		h.respondStoreError(w, r, "like", err)
		return
	}
	if changed {
		h.invalidate(r)
	}

	result := feedstore.Result{Success: true}
	if liked {
		result.Liked = &changed
	} else {
		result.Unliked = &changed
	}
	respondJSON(ctx, w, http.StatusOK, result)
}

func (h StoreHandler) addComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req feedstore.CommentRequest
	if !h.decode(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	switch {
	case req.VideoID <= 0:
		respondError(ctx, w, http.StatusBadRequest, "video_id is required")
		return
	case text == "":
		respondError(ctx, w, http.StatusBadRequest, "text is required")
		return
	}

	comment, err := h.Engagement.AddComment(ctx, req.VideoID, actor(req.UserID), text)
	if err != nil {
		h.respondStoreError(w, r, "comment", err)
		return
	}
	h.invalidate(r)
	respondJSON(ctx, w, http.StatusOK, comment)
}

func (h StoreHandler) createVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.NewVideo
	if !h.decode(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}
	req.UserID = actor(req.UserID)

	var err error
	if req.VideoURL, err = h.resolve(r, "videos", req.VideoURL); err != nil {
		h.respondMediaError(w, r, err)
		return
	}
	if req.ThumbnailURL, err = h.resolve(r, "thumbnails", req.ThumbnailURL); err != nil {
		h.respondMediaError(w, r, err)
		return
	}

	created, err := h.Videos.Create(ctx, req)
	if err != nil {
		h.respondStoreError(w, r, "video", err)
		return
	}
	h.invalidate(r)
	respondJSON(ctx, w, http.StatusOK, created)
}

func (h StoreHandler) updateThumbnail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req feedstore.ThumbnailRequest
	if !h.decode(w, r, &req) {
		return
	}
	switch {
	case req.VideoID <= 0:
		respondError(ctx, w, http.StatusBadRequest, "video_id is required")
		return
	case req.ThumbnailURL == "":
		respondError(ctx, w, http.StatusBadRequest, "thumbnail_url is required")
		return
	}

	location, err := h.resolve(r, "thumbnails", req.ThumbnailURL)
	if err != nil {
		h.respondMediaError(w, r, err)
		return
	}
	if err := h.Videos.UpdateThumbnail(ctx, req.VideoID, req.UserID, location); err != nil {
		h.respondStoreError(w, r, "video", err)
		return
	}
	h.invalidate(r)
	respondJSON(ctx, w, http.StatusOK, feedstore.Result{Success: true})
}

func (h StoreHandler) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := auth.DefaultUserID
	if raw := r.URL.Query().Get("id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			respondError(ctx, w, http.StatusBadRequest, "invalid user id")
			return
		}
		id = parsed
	}

	user, err := h.Users.Find(ctx, id)
	if err != nil {
		h.respondStoreError(w, r, "user", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, user)
}

func (h StoreHandler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req feedstore.AvatarRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.AvatarURL == "" {
		respondError(ctx, w, http.StatusBadRequest, "avatar_url is required")
		return
	}

	location, err := h.resolve(r, "avatars", req.AvatarURL)
	if err != nil {
		h.respondMediaError(w, r, err)
		return
	}
	if err := h.Users.UpdateAvatar(ctx, actor(req.UserID), location); err != nil {
		h.respondStoreError(w, r, "user", err)
		return
	}
	h.invalidate(r)
	respondJSON(ctx, w, http.StatusOK, feedstore.Result{Success: true, AvatarURL: location})
}

// decode reads a JSON body, writing a 400 or 413 response on failure.
func (h StoreHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(dst)
	if err == nil {
		return true
	}

	logging.FromContext(ctx).Warn("invalid store payload", "error", err)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		respondError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		respondError(ctx, w, http.StatusBadRequest, "request body is required")
	default:
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
	}
	return false
}

func (h StoreHandler) resolve(r *http.Request, kind, value string) (string, error) {
	if h.Media == nil || value == "" {
		return value, nil
	}
	return h.Media.Resolve(r.Context(), kind, value)
}

func (h StoreHandler) invalidate(r *http.Request) {
	if h.Cache == nil {
		return
	}
	if _, err := h.Cache.Bump(r.Context(), cache.FeedKey); err != nil {
		logging.FromContext(r.Context()).Warn("feed cache invalidation failed", "error", err)
	}
}

func (h StoreHandler) respondStoreError(w http.ResponseWriter, r *http.Request, entity string, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, repositories.ErrForbidden):
		respondError(ctx, w, http.StatusForbidden, entity+" belongs to another user")
	case errors.Is(err, repositories.ErrConflict):
		respondError(ctx, w, http.StatusConflict, entity+" already exists")
	default:
		logging.FromContext(ctx).Error("store operation failed", "entity", entity, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

func (h StoreHandler) respondMediaError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, media.ErrMalformedPayload) {
		respondError(r.Context(), w, http.StatusBadRequest, "malformed media payload")
		return
	}
	logging.FromContext(r.Context()).Error("media upload failed", "error", err)
	respondError(r.Context(), w, http.StatusBadGateway, "failed to store media")
}

// actor falls back to the default user when a request names none.
func actor(userID int64) int64 {
	if userID <= 0 {
		return auth.DefaultUserID
	}
	return userID
}
