package testing

import (
	"errors"
	"strings"
	"testing"

	"github.com/marmos91/dittorepo/pkg/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunListTests covers delimiter listings.
func (suite *StoreTestSuite) RunListTests(t *testing.T) {
	t.Run("ListEmptyStore", suite.testListEmptyStore)
	t.Run("ListImmediateChildren", suite.testListImmediateChildren)
	t.Run("ListWithoutTrailingDelimiter", suite.testListWithoutTrailingDelimiter)
	t.Run("ListRoot", suite.testListRoot)
	t.Run("ListDoesNotMatchSiblingPrefix", suite.testListDoesNotMatchSiblingPrefix)
	t.Run("PrefixDisappearsAfterLastDelete", suite.testPrefixDisappearsAfterLastDelete)
}

func (suite *StoreTestSuite) testListEmptyStore(t *testing.T) {
	store := suite.newStore(t)

	listing, err := store.List(testContext(), "users/1/repositories/")
	require.NoError(t, err)
	assert.True(t, listing.Empty())
	assert.NotNil(t, listing.Prefixes)
	assert.NotNil(t, listing.Items)
}

func (suite *StoreTestSuite) testListImmediateChildren(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	keys := []string{
		"users/1/repositories/r/a.txt",
		"users/1/repositories/r/b.txt",
		"users/1/repositories/r/docs/c.txt",
		"users/1/repositories/r/docs/deep/d.txt",
		"users/1/repositories/r/img/e.png",
	}
	for _, key := range keys {
		require.NoError(t, store.Put(ctx, key, []byte(key)))
	}

	listing, err := store.List(ctx, "users/1/repositories/r/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"users/1/repositories/r/docs/",
		"users/1/repositories/r/img/",
	}, listing.Prefixes)
	assert.Equal(t, []string{
		"users/1/repositories/r/a.txt",
		"users/1/repositories/r/b.txt",
	}, listing.Items)

	nested, err := store.List(ctx, "users/1/repositories/r/docs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/1/repositories/r/docs/deep/"}, nested.Prefixes)
	assert.Equal(t, []string{"users/1/repositories/r/docs/c.txt"}, nested.Items)
}

func (suite *StoreTestSuite) testListWithoutTrailingDelimiter(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "users/1/repositories/r/a.txt", []byte("a")))

	listing, err := store.List(ctx, "users/1/repositories")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/1/repositories/r/"}, listing.Prefixes)
	assert.Empty(t, listing.Items)
}

func (suite *StoreTestSuite) testListRoot(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "top.txt", []byte("t")))
	require.NoError(t, store.Put(ctx, "users/1/x", []byte("x")))

	listing, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/"}, listing.Prefixes)
	assert.Equal(t, []string{"top.txt"}, listing.Items)
}

func (suite *StoreTestSuite) testListDoesNotMatchSiblingPrefix(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "repos/app/a.txt", []byte("a")))
	require.NoError(t, store.Put(ctx, "repos/application/b.txt", []byte("b")))

	listing, err := store.List(ctx, "repos/app")
	require.NoError(t, err)
	assert.Empty(t, listing.Prefixes)
	assert.Equal(t, []string{"repos/app/a.txt"}, listing.Items)
}

func (suite *StoreTestSuite) testPrefixDisappearsAfterLastDelete(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "users/1/repositories/gone/nested/a.txt", []byte("a")))
	require.NoError(t, store.Put(ctx, "users/1/repositories/kept/b.txt", []byte("b")))
	require.NoError(t, store.Delete(ctx, "users/1/repositories/gone/nested/a.txt"))

	listing, err := store.List(ctx, "users/1/repositories/")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/1/repositories/kept/"}, listing.Prefixes)

	gone, err := store.List(ctx, "users/1/repositories/gone/")
	require.NoError(t, err)
	assert.True(t, gone.Empty())
}

// RunURLTests covers URL resolution.
func (suite *StoreTestSuite) RunURLTests(t *testing.T) {
	t.Run("URLForExistingObject", suite.testURLForExistingObject)
	t.Run("URLForMissingObject", suite.testURLForMissingObject)
}

func (suite *StoreTestSuite) testURLForExistingObject(t *testing.T) {
	store := suite.newStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, "users/1/repositories/r/a.txt", []byte("a")))

	u, err := store.URL(ctx, "users/1/repositories/r/a.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, u)
	assert.True(t, strings.Contains(u, "a.txt"), "url %q should reference the object", u)
}

func (suite *StoreTestSuite) testURLForMissingObject(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.URL(testContext(), "users/1/repositories/r/missing.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, objectstore.ErrObjectNotFound), "got %v", err)
}
