package feed

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vidfriends/vidfeed/internal/logging"
	"github.com/vidfriends/vidfeed/internal/models"
)

// ErrNoStore is returned when a cache was built without a store.
var ErrNoStore = errors.New("feed store not configured")

// Lister is the slice of the remote store the cache depends on.
type Lister interface {
	ListVideos(ctx context.Context) ([]models.Video, error)
}

// snapshot is an immutable view of the feed. It is never modified after it
// has been published.
type snapshot struct {
	videos      []models.Video
	index       map[int64]int
	version     uint64
	refreshedAt time.Time
}

// Cache holds the last successfully fetched feed. Refresh replaces the whole
// collection in one step, so readers see either the old or the new feed.
type Cache struct {
	store  Lister
	logger *slog.Logger
	now    func() time.Time

	issued atomic.Uint64

	mu      sync.Mutex
	applied uint64
	current atomic.Pointer[snapshot]
}

// NewCache returns an empty cache backed by store.
func NewCache(store Lister, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{store: store, logger: logger, now: time.Now}
	c.current.Store(&snapshot{index: map[int64]int{}})
	return c
}

// Refresh fetches the feed and publishes it. Responses that arrive after a
// newer refresh has already been applied are discarded; that is not an error
// because the cache already holds fresher data.
func (c *Cache) Refresh(ctx context.Context) (err error) {
	if c == nil || c.store == nil {
		return &FetchError{Err: ErrNoStore}
	}

	seq := c.issued.Add(1)
	ctx, span := logging.StartSpan(ctx, "feed.refresh", slog.Uint64("seq", seq))
	defer func() {
		span.Fail(err)
		span.End()
	}()

	videos, err := c.store.ListVideos(ctx)
	if err != nil {
		return &FetchError{Err: err}
	}

	next := c.build(ctx, videos, seq)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.applied {
		logging.FromContext(ctx).Debug("dropping stale feed response",
			slog.Uint64("seq", seq),
			slog.Uint64("applied", c.applied),
		)
		return nil
	}
	c.applied = seq
	c.current.Store(next)
	return nil
}

func (c *Cache) build(ctx context.Context, videos []models.Video, seq uint64) *snapshot {
	logger := logging.FromContext(ctx)
	if _, ok := logging.Lookup(ctx); !ok {
		logger = c.logger
	}

	snap := &snapshot{
		videos:      make([]models.Video, 0, len(videos)),
		index:       make(map[int64]int, len(videos)),
		version:     seq,
		refreshedAt: c.now(),
	}
	for _, v := range videos {
		v = normalize(v)
		if v.LikesCount != int64(len(v.LikedBy)) {
			logger.Warn("like count disagrees with membership",
				slog.Int64("video_id", v.ID),
				slog.Int64("likes_count", v.LikesCount),
				slog.Int("liked_by", len(v.LikedBy)),
			)
			v.LikesCount = int64(len(v.LikedBy))
		}
		if _, dup := snap.index[v.ID]; dup {
			logger.Warn("duplicate video in feed", slog.Int64("video_id", v.ID))
			continue
		}
		snap.index[v.ID] = len(snap.videos)
		snap.videos = append(snap.videos, v)
	}
	return snap
}

// normalize returns a private copy of v with a deduplicated like set and
// comments in chronological order.
func normalize(v models.Video) models.Video {
	seen := make(map[int64]struct{}, len(v.LikedBy))
	liked := make([]int64, 0, len(v.LikedBy))
	for _, id := range v.LikedBy {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		liked = append(liked, id)
	}
	v.LikedBy = liked

	v.Comments = slices.Clone(v.Comments)
	if v.Comments == nil {
		v.Comments = []models.Comment{}
	}
	slices.SortStableFunc(v.Comments, func(a, b models.Comment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return v
}

// Videos returns the cached feed in store order.
func (c *Cache) Videos() []models.Video {
	snap := c.current.Load()
	out := make([]models.Video, len(snap.videos))
	for i, v := range snap.videos {
		out[i] = clone(v)
	}
	return out
}

// Video looks up a cached video by id.
func (c *Cache) Video(id int64) (models.Video, bool) {
	snap := c.current.Load()
	i, ok := snap.index[id]
	if !ok {
		return models.Video{}, false
	}
	return clone(snap.videos[i]), true
}

// Version is the sequence number of the applied refresh, zero before the
// first successful one.
func (c *Cache) Version() uint64 {
	return c.current.Load().version
}

// RefreshedAt reports when the current snapshot was built.
func (c *Cache) RefreshedAt() time.Time {
	return c.current.Load().refreshedAt
}

// IsLikedBy reports whether userID is in the video's like set.
func (c *Cache) IsLikedBy(v models.Video, userID int64) bool {
	return slices.Contains(v.LikedBy, userID)
}

func (c *Cache) CommentCount(v models.Video) int {
	return len(v.Comments)
}

func (c *Cache) FormattedViewCount(v models.Video) string {
	return FormatViews(v.Views)
}

func (c *Cache) FormattedAge(v models.Video, now time.Time) string {
	return FormatAge(v.CreatedAt.Time, now)
}

func clone(v models.Video) models.Video {
	v.LikedBy = slices.Clone(v.LikedBy)
	v.Comments = slices.Clone(v.Comments)
	return v
}
