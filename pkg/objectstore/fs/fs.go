// Package fs implements a filesystem-backed object store.
//
// Object keys map one-to-one to file paths below the store root, so the
// directory tree mirrors the key hierarchy and can be inspected with normal
// tools. Directories are created on Put and pruned on Delete once empty,
// which keeps "prefix exists" equivalent to "some object lives below it".
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/dittorepo/pkg/objectstore"
	"github.com/spf13/afero"
)

// FSObjectStore implements objectstore.Store on top of an afero.Fs.
//
// Any afero filesystem works: the OS filesystem rooted at a directory in
// production (see NewOSObjectStore) and afero.NewMemMapFs() in tests.
//
// Thread Safety:
// Puts run concurrently with each other. Delete takes an exclusive lock
// because pruning empty parent directories must not race with a Put that is
// creating them.
type FSObjectStore struct {
	fs      afero.Fs
	baseURL string

	mu     sync.RWMutex
	closed bool
}

// NewFSObjectStore creates a store on fs.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//   - fs: Filesystem holding the objects; paths are rooted at "/"
//   - baseURL: Address prefix returned by URL
func NewFSObjectStore(ctx context.Context, fs afero.Fs, baseURL string) (*FSObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, fmt.Errorf("filesystem is required")
	}

	return &FSObjectStore{fs: fs, baseURL: baseURL}, nil
}

// NewOSObjectStore creates a store rooted at the given directory of the
// local filesystem, creating it if needed.
func NewOSObjectStore(ctx context.Context, root, baseURL string) (*FSObjectStore, error) {
	if root == "" {
		return nil, fmt.Errorf("root path is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root %q: %w", root, err)
	}

	return NewFSObjectStore(ctx, afero.NewBasePathFs(afero.NewOsFs(), root), baseURL)
}

// objectPath maps a key to its path on the filesystem.
func objectPath(key string) string {
	return filepath.FromSlash("/" + key)
}

// Put writes data to the file at key, creating parent directories.
func (s *FSObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := objectstore.ValidateKey(key); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return objectstore.ErrStoreClosed
	}

	path := objectPath(key)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", key, err)
	}
	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return nil
}

// Get reads the file at key.
func (s *FSObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objectstore.ErrStoreClosed
	}

	if err := s.statObject(key); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, objectPath(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the file at key and prunes parent directories left empty.
func (s *FSObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objectstore.ErrStoreClosed
	}

	path := objectPath(key)
	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	if info.IsDir() {
		// A prefix, not an object.
		return nil
	}

	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}

	s.pruneEmptyParents(filepath.Dir(path))
	return nil
}

// pruneEmptyParents removes dir and its ancestors while they are empty.
// Must be called with mu held for writing.
func (s *FSObjectStore) pruneEmptyParents(dir string) {
	root := filepath.FromSlash("/")
	for dir != root && dir != "." {
		entries, err := afero.ReadDir(s.fs, dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := s.fs.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// List reads the directory that corresponds to prefix.
func (s *FSObjectStore) List(ctx context.Context, prefix string) (*objectstore.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objectstore.ErrStoreClosed
	}

	prefix = objectstore.AsPrefix(prefix)
	listing := &objectstore.Listing{Prefixes: []string{}, Items: []string{}}

	dir := objectPath(strings.TrimSuffix(prefix, objectstore.Delimiter))
	info, err := s.fs.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return listing, nil
		}
		return nil, fmt.Errorf("failed to stat prefix %q: %w", prefix, err)
	}
	if !info.IsDir() {
		return listing, nil
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			listing.Prefixes = append(listing.Prefixes, prefix+entry.Name()+objectstore.Delimiter)
		} else {
			listing.Items = append(listing.Items, prefix+entry.Name())
		}
	}

	sort.Strings(listing.Prefixes)
	sort.Strings(listing.Items)
	return listing, nil
}

// URL returns the download address of key below the configured base URL.
func (s *FSObjectStore) URL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", objectstore.ErrStoreClosed
	}
	if err := s.statObject(key); err != nil {
		return "", err
	}

	return objectstore.ObjectURL(s.baseURL, key), nil
}

// statObject returns ErrObjectNotFound unless a regular file exists at key.
func (s *FSObjectStore) statObject(key string) error {
	if objectstore.ValidateKey(key) != nil {
		return fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
	}

	info, err := s.fs.Stat(objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	if info.IsDir() {
		return fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
	}
	return nil
}

// Close marks the store closed. The underlying filesystem is left intact.
func (s *FSObjectStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
