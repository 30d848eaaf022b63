package models

// User is the minimal account record the feed needs for attribution.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Comment is an immutable remark attached to a video.
type Comment struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"created_at"`
	UserID    int64     `json:"user_id"`
	Author    string    `json:"author"`
	AvatarURL string    `json:"avatar_url"`
}

// Video is a feed entry with its denormalized author, like membership and
// comments as returned by the feed store listing.
type Video struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail_url"`
	VideoURL     string    `json:"video_url"`
	Views        int64     `json:"views"`
	CreatedAt    Timestamp `json:"created_at"`
	UserID       int64     `json:"user_id"`
	Author       string    `json:"author"`
	AvatarURL    string    `json:"avatar_url"`
	LikesCount   int64     `json:"likes_count"`
	LikedBy      []int64   `json:"liked_by"`
	Comments     []Comment `json:"comments"`
}

// NewVideo carries the fields required to register a video.
type NewVideo struct {
	Title        string `json:"title"`
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	UserID       int64  `json:"user_id"`
}
