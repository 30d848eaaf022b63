package feedstore

import (
	"context"

	"github.com/vidfriends/vidfeed/internal/models"
)

// Store is the remote feed backend consumed by the feed cache and the
// action dispatcher.
type Store interface {
	ListVideos(ctx context.Context) ([]models.Video, error)
	Like(ctx context.Context, videoID, userID int64) error
	Unlike(ctx context.Context, videoID, userID int64) error
	AddComment(ctx context.Context, videoID, userID int64, text string) (models.Comment, error)
	CreateVideo(ctx context.Context, video models.NewVideo) (models.Video, error)
	UpdateVideoThumbnail(ctx context.Context, videoID, userID int64, payload string) error
	// UpdateUserAvatar returns the avatar reference the store kept.
	UpdateUserAvatar(ctx context.Context, userID int64, payload string) (string, error)
	GetUser(ctx context.Context, userID int64) (models.User, error)
}

// Wire bodies shared by the client and the reference server.

// LikeRequest is the body of POST and DELETE ?path=like.
type LikeRequest struct {
	VideoID int64 `json:"video_id"`
	UserID  int64 `json:"user_id"`
}

// CommentRequest is the body of POST ?path=comment.
type CommentRequest struct {
	VideoID int64  `json:"video_id"`
	UserID  int64  `json:"user_id"`
	Text    string `json:"text"`
}

// ThumbnailRequest is the body of PUT ?path=video.
type ThumbnailRequest struct {
	VideoID      int64  `json:"video_id"`
	UserID       int64  `json:"user_id,omitempty"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// AvatarRequest is the body of PUT ?path=user.
type AvatarRequest struct {
	UserID    int64  `json:"user_id"`
	AvatarURL string `json:"avatar_url"`
}

// Result is the generic acknowledgement returned by mutating operations.
type Result struct {
	Success   bool   `json:"success"`
	Liked     *bool  `json:"liked,omitempty"`
	Unliked   *bool  `json:"unliked,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ErrorBody is the error envelope used by the store.
type ErrorBody struct {
	Error string `json:"error"`
}

// Paths understood by the store endpoint.
const (
	PathVideos  = "videos"
	PathLike    = "like"
	PathComment = "comment"
	PathVideo   = "video"
	PathUser    = "user"
)
