package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryArchive keeps exports in process memory. Used when no object store is
// configured in development and in tests.
type MemoryArchive struct {
	// BaseURL prefixes generated download links
	BaseURL string
	TTL     time.Duration

	mu      sync.RWMutex
	objects map[string]Object
	now     func() time.Time
}

// Object is an archived file
type Object struct {
	Data        []byte
	ContentType string
	StoredAt    time.Time
}

// NewMemoryArchive creates an empty in-memory archive
func NewMemoryArchive(baseURL string) *MemoryArchive {
	return &MemoryArchive{
		BaseURL: baseURL,
		TTL:     15 * time.Minute,
		objects: make(map[string]Object),
		now:     time.Now,
	}
}

// Key builds the object key of an export file
func (m *MemoryArchive) Key(userID, name string) string {
	return ExportKey("exports", userID, name, m.now())
}

// Put stores a copy of data
func (m *MemoryArchive) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf, ContentType: contentType, StoredAt: m.now()}
	return nil
}

// DownloadURL returns BaseURL/key
func (m *MemoryArchive) DownloadURL(_ context.Context, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	return m.BaseURL + "/" + key, m.now().Add(m.TTL), nil
}

// Get returns a stored object
func (m *MemoryArchive) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Delete removes a stored object
func (m *MemoryArchive) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
