// Package objectstore defines the blob store abstraction that repositories
// are persisted to.
//
// An object store is a flat key/value space addressed by '/'-separated keys.
// There are no directory entities: a "folder" is a key prefix that groups
// descendant keys, and it exists only while at least one key lives below it.
// Listing a prefix returns its immediate children split into sub-prefixes
// and leaf objects, the same way S3 reports CommonPrefixes and Contents when
// a delimiter is supplied.
//
// Backends:
//   - memory: volatile map, for tests and development
//   - fs: local filesystem through afero
//   - badger: embedded persistent key/value store
//   - s3: Amazon S3 or any S3-compatible service
package objectstore

import "context"

// Listing is the result of listing a prefix.
//
// Prefixes holds the full key of every immediate sub-prefix, always ending
// with Delimiter (e.g. "users/42/repositories/docs/"). Items holds the full
// key of every object stored directly under the listed prefix. Both slices
// are sorted and never nil.
type Listing struct {
	Prefixes []string
	Items    []string
}

// Empty reports whether the listing has neither prefixes nor items.
func (l *Listing) Empty() bool {
	return len(l.Prefixes) == 0 && len(l.Items) == 0
}

// Store is the object store client used by the repository layer.
//
// Consistency Model:
// Stores are assumed synchronous-after-write: once Put or Delete returns nil,
// subsequent List, Get and URL calls observe the change.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same key are last-write-wins.
type Store interface {
	// Put creates or replaces the object stored at key.
	//
	// Returns ErrInvalidKey if key is malformed (see ValidateKey).
	Put(ctx context.Context, key string, data []byte) error

	// Get returns a copy of the object stored at key.
	//
	// Returns ErrObjectNotFound if key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object stored at key.
	//
	// The operation is idempotent: deleting a missing key returns nil.
	Delete(ctx context.Context, key string) error

	// List returns the immediate children of prefix.
	//
	// The prefix is treated as a folder: a missing trailing Delimiter is
	// added, and the empty prefix lists the root. Listing a prefix with no
	// descendants returns an empty Listing, not an error.
	List(ctx context.Context, prefix string) (*Listing, error)

	// URL returns an address from which the object at key can be retrieved.
	//
	// Returns ErrObjectNotFound if key does not exist.
	URL(ctx context.Context, key string) (string, error)

	// Close releases resources held by the store. Using a closed store
	// returns ErrStoreClosed.
	Close() error
}
