package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/dittorepo/pkg/objectstore"
)

// MemoryObjectStore implements objectstore.Store using in-memory storage.
//
// This implementation stores all objects in a map. It's designed for:
//   - Testing and development
//   - Temporary/ephemeral storage
//
// Characteristics:
//   - Fast: All operations are memory-speed
//   - Volatile: Data lost on restart
//   - Thread-safe: Protected by RWMutex
//
// Listing scans every key, so List is O(total keys). Data is copied on
// Put and Get to prevent races with caller-owned buffers.
type MemoryObjectStore struct {
	// objects stores the object bytes keyed by full object key
	objects map[string][]byte

	// baseURL is the address prefix returned by URL
	baseURL string

	closed bool

	// mu protects objects and closed
	mu sync.RWMutex
}

// NewMemoryObjectStore creates a new, empty in-memory object store.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//   - baseURL: Address prefix for URL (e.g. "http://localhost:8080/api/objects")
//
// Returns:
//   - *MemoryObjectStore: Initialized store
//   - error: Only returns error if context is cancelled
func NewMemoryObjectStore(ctx context.Context, baseURL string) (*MemoryObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryObjectStore{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}, nil
}

// Put stores a copy of data at key, replacing any existing object.
func (s *MemoryObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := objectstore.ValidateKey(key); err != nil {
		return err
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objectstore.ErrStoreClosed
	}

	s.objects[key] = dataCopy
	return nil
}

// Get returns a copy of the object stored at key.
func (s *MemoryObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objectstore.ErrStoreClosed
	}

	data, exists := s.objects[key]
	if !exists {
		return nil, fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return dataCopy, nil
}

// Delete removes the object at key. Missing keys are not an error.
func (s *MemoryObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objectstore.ErrStoreClosed
	}

	delete(s.objects, key)
	return nil
}

// List returns the immediate children of prefix.
func (s *MemoryObjectStore) List(ctx context.Context, prefix string) (*objectstore.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, objectstore.ErrStoreClosed
	}
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	return objectstore.SplitListing(prefix, keys), nil
}

// URL returns the download address of key below the configured base URL.
func (s *MemoryObjectStore) URL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", objectstore.ErrStoreClosed
	}
	if _, exists := s.objects[key]; !exists {
		return "", fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
	}

	return objectstore.ObjectURL(s.baseURL, key), nil
}

// Close marks the store closed and drops all objects.
func (s *MemoryObjectStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.objects = nil
	return nil
}

// Len returns the number of stored objects.
func (s *MemoryObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
