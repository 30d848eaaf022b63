package repositories

import (
	"context"
	"errors"

	"github.com/vidfriends/vidfeed/internal/models"
)

// Sentinel errors shared by every repository implementation. Handlers map
// them onto HTTP statuses.
var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record conflict")
	ErrForbidden = errors.New("record owned by another user")
)

// UserRepository reads profiles and replaces avatars.
type UserRepository interface {
	Find(ctx context.Context, id int64) (models.User, error)
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
}

// VideoRepository lists the feed and registers videos.
type VideoRepository interface {
	ListFeed(ctx context.Context) ([]models.Video, error)
	Create(ctx context.Context, video models.NewVideo) (models.Video, error)
	// UpdateThumbnail replaces a video's thumbnail. A zero userID skips the
	// ownership check.
	UpdateThumbnail(ctx context.Context, videoID, userID int64, thumbnailURL string) error
}

// EngagementRepository persists likes and comments. Likes are a set per
// video, so Like and Unlike are idempotent; they report whether the set
// actually changed.
type EngagementRepository interface {
	Like(ctx context.Context, videoID, userID int64) (bool, error)
	Unlike(ctx context.Context, videoID, userID int64) (bool, error)
	AddComment(ctx context.Context, videoID, userID int64, text string) (models.Comment, error)
}
