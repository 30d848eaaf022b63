package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vidfriends/vidfeed/internal/models"
)

// DefaultUserID is the actor the store assumes when a request names none.
const DefaultUserID int64 = 1

// ErrInvalidUser indicates an identity was configured without a usable id.
var ErrInvalidUser = errors.New("user id must be positive")

// IdentityProvider exposes the acting user. The feed has no sign-in, so the
// identity is fixed for the lifetime of a session.
type IdentityProvider interface {
	Current(ctx context.Context) (models.User, error)
	SetAvatar(ref string)
}

// UserFetcher loads a user profile from the remote store.
type UserFetcher interface {
	GetUser(ctx context.Context, userID int64) (models.User, error)
}

// StaticIdentity is an IdentityProvider holding one user in memory.
type StaticIdentity struct {
	mu   sync.RWMutex
	user models.User
}

// NewStaticIdentity returns an identity for user.
func NewStaticIdentity(user models.User) (*StaticIdentity, error) {
	if user.ID <= 0 {
		return nil, ErrInvalidUser
	}
	return &StaticIdentity{user: user}, nil
}

// Current returns a copy of the acting user.
func (s *StaticIdentity) Current(_ context.Context) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, nil
}

// SetAvatar replaces the avatar reference held for the acting user.
func (s *StaticIdentity) SetAvatar(ref string) {
	s.mu.Lock()
	s.user.AvatarURL = ref
	s.mu.Unlock()
}

// Bootstrap resolves the profile of userID through fetcher. Without a
// fetcher the identity carries only the id.
func Bootstrap(ctx context.Context, fetcher UserFetcher, userID int64) (*StaticIdentity, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	if fetcher == nil {
		return NewStaticIdentity(models.User{ID: userID})
	}

	user, err := fetcher.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if user.ID == 0 {
		user.ID = userID
	}
	return NewStaticIdentity(user)
}
