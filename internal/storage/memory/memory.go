package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/roorq/storefront/internal/storage"
)

type object struct {
	contentType string
	data        []byte
}

// Store implements storage.Store in memory. It backs development
// deployments and tests.
type Store struct {
	mu      sync.RWMutex
	objects map[string]*object
	baseURL string
	now     func() time.Time
}

// New creates an empty in-memory store whose presigned URLs are rooted at
// baseURL.
func New(baseURL string) *Store {
	return &Store{
		objects: make(map[string]*object),
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Put reads the object fully into memory.
func (s *Store) Put(_ context.Context, input *storage.PutInput) error {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[input.Key] = &object{contentType: input.ContentType, data: data}
	return nil
}

// PresignGet returns a URL carrying the expiry as a query parameter.
func (s *Store) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.objects[key]; !ok {
		return "", fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	expires := s.now().Add(ttl).Unix()
	return fmt.Sprintf("%s/%s?expires=%d", s.baseURL, url.PathEscape(key), expires), nil
}

// Delete removes the object at key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Open returns the stored bytes of key.
func (s *Store) Open(key string) (io.Reader, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(obj.data), obj.contentType, true
}

// ServeHTTP serves objects by key until the expiry carried in the presigned
// URL. Mount it under the base URL prefix with http.StripPrefix.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	expires, err := strconv.ParseInt(r.URL.Query().Get("expires"), 10, 64)
	if err != nil || s.now().Unix() > expires {
		http.Error(w, "link expired", http.StatusForbidden)
		return
	}

	body, contentType, ok := s.Open(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.Copy(w, body)
}
