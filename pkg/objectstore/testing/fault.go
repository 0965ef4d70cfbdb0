package testing

import (
	"context"
	"sync"

	"github.com/marmos91/dittorepo/pkg/objectstore"
)

// FaultStore wraps a Store to count calls and inject failures.
//
// The Fail* hooks are consulted before delegating; a non-nil error is
// returned without touching the wrapped store. Hooks must be set before the
// store is shared between goroutines.
type FaultStore struct {
	objectstore.Store

	FailPut    func(key string) error
	FailDelete func(key string) error
	FailList   func(prefix string) error
	FailURL    func(key string) error

	mu    sync.Mutex
	calls map[string]int
}

// NewFaultStore wraps store with no failures configured.
func NewFaultStore(store objectstore.Store) *FaultStore {
	return &FaultStore{Store: store, calls: make(map[string]int)}
}

// Calls returns how many times operation ("put", "delete", "list", "url",
// "get") was attempted, including injected failures.
func (f *FaultStore) Calls(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[operation]
}

// Mutations returns the number of attempted puts and deletes.
func (f *FaultStore) Mutations() int {
	return f.Calls("put") + f.Calls("delete")
}

// Reset zeroes all call counters.
func (f *FaultStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
}

func (f *FaultStore) record(operation string) {
	f.mu.Lock()
	f.calls[operation]++
	f.mu.Unlock()
}

func (f *FaultStore) Put(ctx context.Context, key string, data []byte) error {
	f.record("put")
	if f.FailPut != nil {
		if err := f.FailPut(key); err != nil {
			return err
		}
	}
	return f.Store.Put(ctx, key, data)
}

func (f *FaultStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.record("get")
	return f.Store.Get(ctx, key)
}

func (f *FaultStore) Delete(ctx context.Context, key string) error {
	f.record("delete")
	if f.FailDelete != nil {
		if err := f.FailDelete(key); err != nil {
			return err
		}
	}
	return f.Store.Delete(ctx, key)
}

func (f *FaultStore) List(ctx context.Context, prefix string) (*objectstore.Listing, error) {
	f.record("list")
	if f.FailList != nil {
		if err := f.FailList(prefix); err != nil {
			return nil, err
		}
	}
	return f.Store.List(ctx, prefix)
}

func (f *FaultStore) URL(ctx context.Context, key string) (string, error) {
	f.record("url")
	if f.FailURL != nil {
		if err := f.FailURL(key); err != nil {
			return "", err
		}
	}
	return f.Store.URL(ctx, key)
}
