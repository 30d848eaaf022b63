package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidfriends/vidfeed/internal/cache"
	"github.com/vidfriends/vidfeed/internal/feedstore"
	"github.com/vidfriends/vidfeed/internal/media"
	"github.com/vidfriends/vidfeed/internal/middleware"
	"github.com/vidfriends/vidfeed/internal/models"
	"github.com/vidfriends/vidfeed/internal/storage"
)

// TestFeedStoreClientRoundTrip drives the real client against the store
// handler, with compressed request bodies and the listing cache enabled.
func TestFeedStoreClientRoundTrip(t *testing.T) {
	feed := newInMemoryFeed()
	objects := storage.NewMemoryStorage("https://cdn.example")

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Videos:     feed,
		Engagement: feed,
		Users:      feed,
		Media:      storage.NewOffloader(objects),
		Cache:      cache.NewMemoryResponseCache(),
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(middleware.Chain(mux, middleware.RequestLogger(logger), middleware.Decompress))
	defer srv.Close()

	ctx := context.Background()
	client := feedstore.NewClient(srv.URL + "/api").WithCompressionThreshold(1)

	user, err := client.GetUser(ctx, 1)
	if err != nil || user.Name != "Вы" {
		t.Fatalf("get user: %+v %v", user, err)
	}

	if err := client.Like(ctx, 10, 1); err != nil {
		t.Fatalf("like: %v", err)
	}
	comment, err := client.AddComment(ctx, 10, 1, "Отлично")
	if err != nil || comment.Text != "Отлично" {
		t.Fatalf("comment: %+v %v", comment, err)
	}

	created, err := client.CreateVideo(ctx, models.NewVideo{
		Title:    "Новое",
		VideoURL: media.EncodeBytes("video/mp4", []byte("fake video bytes")),
		UserID:   1,
	})
	if err != nil {
		t.Fatalf("create video: %v", err)
	}
	if created.VideoURL == "" || media.IsDataURI(created.VideoURL) {
		t.Fatalf("expected video to be offloaded, got %q", created.VideoURL)
	}

	videos, err := client.ListVideos(ctx)
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != created.ID {
		t.Fatalf("expected new video first, got %+v", videos)
	}
	if videos[1].LikesCount != 1 || len(videos[1].Comments) != 1 {
		t.Fatalf("expected like and comment to be visible, got %+v", videos[1])
	}

	again, err := client.ListVideos(ctx)
	if err != nil {
		t.Fatalf("conditional list: %v", err)
	}
	if len(again) != 2 {
		t.Fatalf("expected 304 replay to return the cached listing, got %+v", again)
	}

	if err := client.UpdateVideoThumbnail(ctx, 10, 1, "t.jpg"); !feedstore.IsTransport(err) {
		t.Fatalf("expected forbidden thumbnail update to fail, got %v", err)
	}

	avatar, err := client.UpdateUserAvatar(ctx, 1, media.EncodeBytes("image/png", []byte{0x89, 'P', 'N', 'G'}))
	if err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	if avatar == "" || avatar != feed.users[1].AvatarURL {
		t.Fatalf("expected stored avatar reference to be echoed, got %q", avatar)
	}
}
