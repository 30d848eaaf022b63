package handlers

import (
	"context"

	"github.com/vidfriends/vidfeed/internal/models"
)

// VideoStore captures persistence for feed videos.
type VideoStore interface {
	ListFeed(ctx context.Context) ([]models.Video, error)
	Create(ctx context.Context, video models.NewVideo) (models.Video, error)
	UpdateThumbnail(ctx context.Context, videoID, userID int64, thumbnailURL string) error
}

// EngagementStore captures likes and comments. Like and Unlike report
// whether the like set changed.
type EngagementStore interface {
	Like(ctx context.Context, videoID, userID int64) (bool, error)
	Unlike(ctx context.Context, videoID, userID int64) (bool, error)
	AddComment(ctx context.Context, videoID, userID int64, text string) (models.Comment, error)
}

// UserStore captures the user operations exposed by the store endpoint.
type UserStore interface {
	Find(ctx context.Context, id int64) (models.User, error)
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
}

// MediaResolver turns uploaded media payloads into the references persisted
// with a record.
type MediaResolver interface {
	Resolve(ctx context.Context, kind, value string) (string, error)
}
