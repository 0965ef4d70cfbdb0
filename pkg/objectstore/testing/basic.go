package testing

import (
	"errors"
	"testing"

	"github.com/marmos91/dittorepo/pkg/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests covers Put, Get and Delete.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("PutThenGet", suite.testPutThenGet)
	t.Run("PutOverwrites", suite.testPutOverwrites)
	t.Run("PutEmptyObject", suite.testPutEmptyObject)
	t.Run("PutInvalidKey", suite.testPutInvalidKey)
	t.Run("GetMissing", suite.testGetMissing)
	t.Run("DeleteRemovesObject", suite.testDeleteRemovesObject)
	t.Run("DeleteIsIdempotent", suite.testDeleteIsIdempotent)
	t.Run("GetReturnsCopy", suite.testGetReturnsCopy)
}

func (suite *StoreTestSuite) testPutThenGet(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "users/1/repositories/r/a.txt", []byte("hello")))

	data, err := store.Get(ctx, "users/1/repositories/r/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func (suite *StoreTestSuite) testPutOverwrites(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "k/v", []byte("first")))
	require.NoError(t, store.Put(ctx, "k/v", []byte("second")))

	data, err := store.Get(ctx, "k/v")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func (suite *StoreTestSuite) testPutEmptyObject(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "k/empty", nil))

	data, err := store.Get(ctx, "k/empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func (suite *StoreTestSuite) testPutInvalidKey(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	for _, key := range []string{"", "/abs", "trailing/", "a//b", "a/../b"} {
		err := store.Put(ctx, key, []byte("x"))
		require.Error(t, err, "key %q", key)
		assert.True(t, errors.Is(err, objectstore.ErrInvalidKey), "key %q: %v", key, err)
	}
}

func (suite *StoreTestSuite) testGetMissing(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.Get(testContext(), "does/not/exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, objectstore.ErrObjectNotFound), "got %v", err)
}

func (suite *StoreTestSuite) testDeleteRemovesObject(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "k/v", []byte("x")))
	require.NoError(t, store.Delete(ctx, "k/v"))

	_, err := store.Get(ctx, "k/v")
	assert.True(t, errors.Is(err, objectstore.ErrObjectNotFound), "got %v", err)
}

func (suite *StoreTestSuite) testDeleteIsIdempotent(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Delete(ctx, "never/existed"))

	require.NoError(t, store.Put(ctx, "k/v", []byte("x")))
	require.NoError(t, store.Delete(ctx, "k/v"))
	require.NoError(t, store.Delete(ctx, "k/v"))
}

func (suite *StoreTestSuite) testGetReturnsCopy(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	buf := []byte("original")
	require.NoError(t, store.Put(ctx, "k/v", buf))
	buf[0] = 'X'

	data, err := store.Get(ctx, "k/v")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)
}
