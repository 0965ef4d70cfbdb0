package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittorepo/pkg/objectstore"
)

// StoreTestSuite is a conformance test suite for objectstore.Store
// implementations. It tests the interface contract, not implementation
// details, making it reusable across backends (memory, fs, badger, S3).
//
// Usage:
//
//	func TestMyObjectStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func() objectstore.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh Store instance
	// for each test. This ensures test isolation.
	NewStore func() objectstore.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("ListOperations", suite.RunListTests)
	t.Run("URLOperations", suite.RunURLTests)
}

// newStore creates a store and closes it when the test ends.
func (suite *StoreTestSuite) newStore(t *testing.T) objectstore.Store {
	t.Helper()
	store := suite.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
