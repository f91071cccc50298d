package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MemoryStore keeps objects in process memory for local runs without a bucket.
type MemoryStore struct {
	mu            sync.RWMutex
	objects       map[string][]byte
	types         map[string]string
	publicBaseURL string
}

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	if publicBaseURL == "" {
		publicBaseURL = "/media"
	}
	return &MemoryStore{
		objects:       make(map[string][]byte),
		types:         make(map[string]string),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("failed to read object %s: %w", key, err)
	}

	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.types[key] = contentType
	m.mu.Unlock()

	return m.publicBaseURL + "/" + escapeKey(key), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	delete(m.types, key)
	m.mu.Unlock()
	return nil
}

// Get returns a stored object and its content type.
func (m *MemoryStore) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, m.types[key], ok
}

func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

// ServeHTTP serves objects by key; mount it under the public base path with
// http.StripPrefix.
func (m *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := m.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
