package memory

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"travelstory/internal/domain"

	"github.com/google/uuid"
)

type mediaBlob struct {
	contentType string
	data        []byte
}

// MediaHost keeps uploaded images in memory and serves them under a base URL.
type MediaHost struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]mediaBlob
}

var _ domain.MediaHost = (*MediaHost)(nil)

// NewMediaHost creates an in-memory media host whose object URLs are
// baseURL + "/" + id.
func NewMediaHost(baseURL string) *MediaHost {
	return &MediaHost{
		baseURL: strings.TrimRight(baseURL, "/"),
		blobs:   make(map[string]mediaBlob),
	}
}

// Upload stores body.
func (m *MediaHost) Upload(ctx context.Context, contentType, ext string, body io.Reader, size int64) (*domain.MediaObject, error) {
	data, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return nil, err
	}
	id := uuid.NewString() + ext

	m.mu.Lock()
	m.blobs[id] = mediaBlob{contentType: contentType, data: data}
	m.mu.Unlock()

	return &domain.MediaObject{ID: id, URL: m.baseURL + "/" + id}, nil
}

// Delete removes an object.
func (m *MediaHost) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[id]; !ok {
		return false, nil
	}
	delete(m.blobs, id)
	return true, nil
}

// IDFromURL reports whether url was issued by this host.
func (m *MediaHost) IDFromURL(url string) (string, bool) {
	id, ok := strings.CutPrefix(url, m.baseURL+"/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// Len returns the number of stored objects.
func (m *MediaHost) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// ServeHTTP serves GET {baseURL}/{id}.
func (m *MediaHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := m.IDFromURL(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	m.mu.RLock()
	blob, found := m.blobs[id]
	m.mu.RUnlock()
	if !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", blob.contentType)
	http.ServeContent(w, r, id, time.Time{}, bytes.NewReader(blob.data))
}
