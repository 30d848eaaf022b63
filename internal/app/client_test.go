package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vidfriends/vidfeed/internal/actions"
	"github.com/vidfriends/vidfeed/internal/feed"
	"github.com/vidfriends/vidfeed/internal/feedstore"
	"github.com/vidfriends/vidfeed/internal/media"
	"github.com/vidfriends/vidfeed/internal/models"
)

var renderNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func sampleVideos() []models.Video {
	return []models.Video{
		{
			ID: 10, Title: "Космос", Author: "Иван", Views: 1200, UserID: 2,
			CreatedAt:  models.NewTimestamp(renderNow.Add(-30 * time.Hour)),
			LikesCount: 11, LikedBy: []int64{1, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
			Comments: []models.Comment{
				{ID: 1, Text: "Класс", Author: "Вы", UserID: 1, CreatedAt: models.NewTimestamp(renderNow.Add(-2 * time.Hour))},
			},
		},
		{
			ID: 11, Title: "Закат", Author: "Вы", Views: 42, UserID: 1,
			CreatedAt: models.NewTimestamp(renderNow.Add(-time.Hour)),
			LikedBy:   []int64{},
			Comments:  []models.Comment{},
		},
	}
}

type stubLister struct {
	videos []models.Video
}

func (s stubLister) ListVideos(context.Context) ([]models.Video, error) {
	return s.videos, nil
}

func TestRenderFeed(t *testing.T) {
	cache := feed.NewCache(stubLister{videos: sampleVideos()}, nil)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	var out bytes.Buffer
	if err := renderFeed(&out, cache, 1, renderNow, 10); err != nil {
		t.Fatalf("render: %v", err)
	}
	got := out.String()

	for _, want := range []string{
		"#10", "Космос", "Иван • 1К просмотров • вчера", "♥ 11 • комментарии: 1", "Вы: Класс",
		"#11", "42 просмотров • сегодня", "♡ 0 • комментарии: 0",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
	if strings.Index(got, "#10") > strings.Index(got, "#11") {
		t.Fatalf("expected store order to be kept:\n%s", got)
	}
}

func TestRenderEmptyFeed(t *testing.T) {
	var out bytes.Buffer
	if err := renderFeed(&out, feed.NewCache(stubLister{}, nil), 1, renderNow, 0); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(out.String()) != "Лента пуста" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

// fakeStore answers the store endpoint from canned data and records
// mutating requests.
type fakeStore struct {
	mu       sync.Mutex
	videos   []models.Video
	requests []string
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	op := r.Method + " " + r.URL.Query().Get("path")
	w.Header().Set("Content-Type", "application/json")
	switch op {
	case "GET user":
		_ = json.NewEncoder(w).Encode(models.User{ID: 1, Name: "Вы", AvatarURL: "me.svg"})
	case "GET videos":
		_ = json.NewEncoder(w).Encode(f.videos)
	case "POST like":
		var req feedstore.LikeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.requests = append(f.requests, op)
		for i := range f.videos {
			if f.videos[i].ID == req.VideoID {
				f.videos[i].LikedBy = append(f.videos[i].LikedBy, req.UserID)
				f.videos[i].LikesCount++
			}
		}
		liked := true
		_ = json.NewEncoder(w).Encode(feedstore.Result{Success: true, Liked: &liked})
	case "DELETE like":
		f.requests = append(f.requests, op)
		_ = json.NewEncoder(w).Encode(feedstore.Result{Success: true})
	case "PUT user":
		body, _ := io.ReadAll(r.Body)
		f.requests = append(f.requests, op)
		var req feedstore.AvatarRequest
		_ = json.Unmarshal(body, &req)
		_ = json.NewEncoder(w).Encode(feedstore.Result{Success: true, AvatarURL: "https://cdn.example/avatar.png"})
	case "POST videos":
		f.requests = append(f.requests, op)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(feedstore.ErrorBody{Error: "uploads are not served here"})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(feedstore.ErrorBody{Error: "Unknown path"})
	}
}

func (f *fakeStore) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestClientCommandsAgainstStore(t *testing.T) {
	videos := sampleVideos()
	videos[0].LikedBy = []int64{3}
	videos[0].LikesCount = 1
	store := &fakeStore{videos: videos}
	srv := httptest.NewServer(store)
	defer srv.Close()

	t.Setenv("VIDFEED_STORE_URL", srv.URL)
	t.Setenv("VIDFEED_SHARE_BASE_URL", "https://vid.example/")
	t.Setenv("VIDFEED_LOG_LEVEL", "error")
	t.Setenv("VIDFEED_CLIENT_RATE", "0")

	out, err := runCLI(t, "feed")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !strings.Contains(out, "Космос") || !strings.Contains(out, "♡ 1") {
		t.Fatalf("unexpected feed output:\n%s", out)
	}

	out, err = runCLI(t, "like", "10")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if got := store.recorded(); len(got) != 1 || got[0] != "POST like" {
		t.Fatalf("expected a single like request, got %v", got)
	}
	if !strings.Contains(out, "♥ 2") {
		t.Fatalf("expected refreshed feed after like:\n%s", out)
	}

	out, err = runCLI(t, "share", "10")
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if !strings.Contains(out, "https://vid.example/?video=10") || !strings.Contains(out, "Ссылка скопирована") {
		t.Fatalf("unexpected share output:\n%s", out)
	}

	if _, err := runCLI(t, "comment", "10", "   "); !errors.Is(err, actions.ErrEmptyComment) {
		t.Fatalf("expected empty comment error, got %v", err)
	}

	if _, err := runCLI(t, "like", "abc"); err == nil {
		t.Fatal("expected invalid video id to fail")
	}
}

func TestUploadReportsFileProblemsThroughDispatcher(t *testing.T) {
	store := &fakeStore{videos: sampleVideos()}
	srv := httptest.NewServer(store)
	defer srv.Close()

	t.Setenv("VIDFEED_STORE_URL", srv.URL)
	t.Setenv("VIDFEED_LOG_LEVEL", "error")
	t.Setenv("VIDFEED_CLIENT_RATE", "0")
	t.Setenv("VIDFEED_MAX_UPLOAD_BYTES", "4")

	missing := filepath.Join(t.TempDir(), "missing.mp4")
	out, err := runCLI(t, "upload", "--video", missing)
	if !errors.Is(err, actions.ErrEmptyTitle) {
		t.Fatalf("expected the empty title to be reported first, got %v", err)
	}
	if !strings.Contains(out, "✗ Проверьте введённые данные") {
		t.Fatalf("expected a validation notice, got:\n%s", out)
	}

	out, err = runCLI(t, "upload", "--title", "Закат", "--video", missing)
	var readErr *media.ReadError
	if !errors.As(err, &readErr) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a read error for the missing file, got %v", err)
	}
	if !strings.Contains(out, "✗ Не удалось прочитать файл") {
		t.Fatalf("expected a read notice, got:\n%s", out)
	}

	big := filepath.Join(t.TempDir(), "big.mp4")
	if err := os.WriteFile(big, make([]byte, 10), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	out, err = runCLI(t, "upload", "--title", "Закат", "--video", big)
	if !errors.Is(err, media.ErrTooLarge) {
		t.Fatalf("expected the size limit to apply, got %v", err)
	}
	if !strings.Contains(out, "✗ Файл слишком большой") {
		t.Fatalf("expected a size notice, got:\n%s", out)
	}

	if got := store.recorded(); len(got) != 0 {
		t.Fatalf("no upload should reach the store, got %v", got)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if _, err := runCLI(t); err == nil {
		t.Fatal("expected missing command to fail")
	}
	if _, err := runCLI(t, "friends"); err == nil || !strings.Contains(err.Error(), "friends") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}
