package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittorepo/pkg/objectstore"
)

// objectNamespace prefixes every object key in the database so the store can
// share a BadgerDB instance with other data.
//
//	o:users/42/repositories/docs/readme.md -> file bytes
const objectNamespace = "o:"

// BadgerObjectStore implements objectstore.Store on an embedded BadgerDB.
//
// Objects are stored as plain key/value pairs. Delimiter listings are served
// by a prefix scan that seeks past each sub-prefix once it has been seen, so
// listing a prefix costs one seek per immediate child rather than one step per
// descendant.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use. mu only guards the
// closed flag against use-after-close.
type BadgerObjectStore struct {
	db      *badger.DB
	baseURL string

	mu     sync.RWMutex
	closed bool
}

// BadgerObjectStoreConfig contains configuration for creating a BadgerObjectStore.
type BadgerObjectStoreConfig struct {
	// DBPath is the directory where BadgerDB keeps its files.
	// Ignored when InMemory is set.
	DBPath string

	// InMemory runs BadgerDB without touching disk (tests, ephemeral runs)
	InMemory bool

	// BaseURL is the address prefix returned by URL
	BaseURL string

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64
}

// NewBadgerObjectStore opens (or creates) the database described by config.
func NewBadgerObjectStore(ctx context.Context, config BadgerObjectStoreConfig) (*BadgerObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger object store requires a db path")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}

	opts = opts.WithLoggingLevel(badger.WARNING).
		WithCompression(options.Snappy).
		WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerObjectStore{db: db, baseURL: config.BaseURL}, nil
}

func dbKey(key string) []byte {
	return []byte(objectNamespace + key)
}

func (s *BadgerObjectStore) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return objectstore.ErrStoreClosed
	}
	return nil
}

// Put stores data under key, replacing any previous value.
func (s *BadgerObjectStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := objectstore.ValidateKey(key); err != nil {
		return err
	}

	value := make([]byte, len(data))
	copy(value, data)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// Get returns a copy of the value stored under key.
func (s *BadgerObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *BadgerObjectStore) Delete(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(dbKey(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// List scans the keys below prefix.
//
// When a key reveals a sub-prefix, the iterator seeks to the first key after
// that sub-prefix: replacing the trailing delimiter with the next byte value
// ('/'+1 == '0') skips the whole subtree.
func (s *BadgerObjectStore) List(ctx context.Context, prefix string) (*objectstore.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	prefix = objectstore.AsPrefix(prefix)
	scanPrefix := dbKey(prefix)

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = scanPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(scanPrefix)
		for it.ValidForPrefix(scanPrefix) {
			key := string(it.Item().KeyCopy(nil))[len(objectNamespace):]
			keys = append(keys, key)

			rest := key[len(prefix):]
			if i := strings.Index(rest, objectstore.Delimiter); i >= 0 {
				it.Seek(dbKey(prefix + rest[:i] + "0"))
				continue
			}
			it.Next()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}

	return objectstore.SplitListing(prefix, keys), nil
}

// URL returns the download address of key below the configured base URL.
func (s *BadgerObjectStore) URL(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(ctx); err != nil {
		return "", err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(dbKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve object %s: %w", key, err)
	}

	return objectstore.ObjectURL(s.baseURL, key), nil
}

// Close closes the database. Subsequent calls are no-ops.
func (s *BadgerObjectStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
