package objectstore

import (
	"context"
	"time"
)

// Metrics provides observability for object store operations.
//
// Implementations can use this interface to collect operation counts,
// latency, throughput and errors. Passing nil to Instrument disables
// collection.
type Metrics interface {
	// ObserveOperation records an operation with its duration and outcome.
	// operation is one of "put", "get", "delete", "list", "url".
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred by put and get.
	RecordBytes(operation string, bytes int64)
}

// instrumentedStore decorates a Store with metrics collection.
type instrumentedStore struct {
	store   Store
	metrics Metrics
}

// Instrument wraps store so every call is reported to metrics.
//
// A nil metrics returns store unchanged.
func Instrument(store Store, metrics Metrics) Store {
	if metrics == nil {
		return store
	}
	return &instrumentedStore{store: store, metrics: metrics}
}

func (s *instrumentedStore) Put(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := s.store.Put(ctx, key, data)
	s.metrics.ObserveOperation("put", time.Since(start), err)
	if err == nil {
		s.metrics.RecordBytes("put", int64(len(data)))
	}
	return err
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := s.store.Get(ctx, key)
	s.metrics.ObserveOperation("get", time.Since(start), err)
	if err == nil {
		s.metrics.RecordBytes("get", int64(len(data)))
	}
	return data, err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.store.Delete(ctx, key)
	s.metrics.ObserveOperation("delete", time.Since(start), err)
	return err
}

func (s *instrumentedStore) List(ctx context.Context, prefix string) (*Listing, error) {
	start := time.Now()
	listing, err := s.store.List(ctx, prefix)
	s.metrics.ObserveOperation("list", time.Since(start), err)
	return listing, err
}

func (s *instrumentedStore) URL(ctx context.Context, key string) (string, error) {
	start := time.Now()
	u, err := s.store.URL(ctx, key)
	s.metrics.ObserveOperation("url", time.Since(start), err)
	return u, err
}

func (s *instrumentedStore) Close() error {
	return s.store.Close()
}
