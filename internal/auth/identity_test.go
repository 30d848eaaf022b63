package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vidfriends/vidfeed/internal/models"
)

type stubFetcher struct {
	user models.User
	err  error
	got  int64
}

func (s *stubFetcher) GetUser(_ context.Context, userID int64) (models.User, error) {
	s.got = userID
	return s.user, s.err
}

func TestStaticIdentitySetAvatar(t *testing.T) {
	identity, err := NewStaticIdentity(models.User{ID: 1, Name: "Вы", AvatarURL: "old.svg"})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			identity.SetAvatar("data:image/png;base64,AAAA")
			_, _ = identity.Current(context.Background())
		}()
	}
	wg.Wait()

	user, _ := identity.Current(context.Background())
	if user.AvatarURL != "data:image/png;base64,AAAA" || user.Name != "Вы" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestNewStaticIdentityValidation(t *testing.T) {
	if _, err := NewStaticIdentity(models.User{}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

func TestBootstrap(t *testing.T) {
	fetcher := &stubFetcher{user: models.User{ID: 1, Name: "Вы", AvatarURL: "a1.svg"}}
	identity, err := Bootstrap(context.Background(), fetcher, DefaultUserID)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if fetcher.got != DefaultUserID {
		t.Fatalf("expected lookup of user %d, got %d", DefaultUserID, fetcher.got)
	}
	user, _ := identity.Current(context.Background())
	if user.Name != "Вы" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestBootstrapFailures(t *testing.T) {
	boom := errors.New("store unavailable")
	if _, err := Bootstrap(context.Background(), &stubFetcher{err: boom}, 3); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if _, err := Bootstrap(context.Background(), nil, 0); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}

	identity, err := Bootstrap(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("bootstrap without fetcher: %v", err)
	}
	if user, _ := identity.Current(context.Background()); user.ID != 7 {
		t.Fatalf("unexpected user: %+v", user)
	}
}
