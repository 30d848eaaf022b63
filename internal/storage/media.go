package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vidfriends/vidfeed/internal/media"
)

// MediaStorage persists uploaded media and returns a public reference to it.
type MediaStorage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Offloader moves inline data URI payloads into MediaStorage so the database
// keeps short references instead of encoded media.
type Offloader struct {
	storage MediaStorage
}

// NewOffloader returns an Offloader writing to storage. A nil storage keeps
// payloads inline.
func NewOffloader(storage MediaStorage) *Offloader {
	return &Offloader{storage: storage}
}

// Resolve returns the reference to store for value. Plain URLs and empty
// values pass through untouched; data URIs are decoded and saved under kind.
func (o *Offloader) Resolve(ctx context.Context, kind, value string) (string, error) {
	if o == nil || o.storage == nil || !media.IsDataURI(value) {
		return value, nil
	}

	mimeType, data, err := media.Decode(value)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s%s", strings.Trim(kind, "/"), uuid.NewString(), media.ExtensionFor(mimeType))
	location, err := o.storage.Save(ctx, key, mimeType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("store %s media: %w", kind, err)
	}
	return location, nil
}

// MemoryStorage keeps saved media in memory. Contents are lost on restart,
// so it only backs tests and throwaway setups.
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

// Object is a stored blob.
type Object struct {
	ContentType string
	Data        []byte
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

func (m *MemoryStorage) Save(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("memory storage read %s: %w", key, err)
	}

	m.mu.Lock()
	m.objects[key] = Object{ContentType: contentType, Data: data}
	m.mu.Unlock()

	if m.baseURL == "" {
		return key, nil
	}
	return m.baseURL + "/" + key, nil
}

// Get returns the object saved under key.
func (m *MemoryStorage) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys lists stored keys in no particular order.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}

var _ MediaStorage = (*MemoryStorage)(nil)
