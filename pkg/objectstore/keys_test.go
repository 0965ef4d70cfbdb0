package objectstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "users/42/repositories/docs", Join("users", "42", "repositories/", "docs"))
	assert.Equal(t, "a/b", Join("/a/", "", "b/"))
	assert.Equal(t, "", Join())
}

func TestLeaf(t *testing.T) {
	tests := map[string]string{
		"users/42/repositories/docs/":      "docs",
		"users/42/repositories/docs/a.txt": "a.txt",
		"single":                           "single",
		"":                                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Leaf(in), "Leaf(%q)", in)
	}
}

func TestAsPrefix(t *testing.T) {
	assert.Equal(t, "", AsPrefix(""))
	assert.Equal(t, "a/", AsPrefix("a"))
	assert.Equal(t, "a/", AsPrefix("a/"))
}

func TestValidateKey(t *testing.T) {
	valid := []string{"a", "a/b", "users/1/repositories/r/f.txt"}
	for _, k := range valid {
		require.NoError(t, ValidateKey(k), k)
	}

	invalid := []string{"", "/a", "a/", "a//b", "a/./b", "a/../b", ".."}
	for _, k := range invalid {
		err := ValidateKey(k)
		require.Error(t, err, k)
		assert.True(t, errors.Is(err, ErrInvalidKey), k)
	}
}

func TestSplitListing(t *testing.T) {
	keys := []string{
		"p/a.txt",
		"p/sub/b.txt",
		"p/sub/deeper/c.txt",
		"p/other/d.txt",
		"q/e.txt",
	}

	listing := SplitListing("p", keys)
	assert.Equal(t, []string{"p/other/", "p/sub/"}, listing.Prefixes)
	assert.Equal(t, []string{"p/a.txt"}, listing.Items)

	root := SplitListing("", keys)
	assert.Equal(t, []string{"p/", "q/"}, root.Prefixes)
	assert.Empty(t, root.Items)

	empty := SplitListing("missing/", keys)
	assert.True(t, empty.Empty())
	assert.NotNil(t, empty.Prefixes)
	assert.NotNil(t, empty.Items)
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t,
		"http://localhost:8080/api/objects/users/1/my%20repo/a%3Fb.txt",
		ObjectURL("http://localhost:8080/api/objects/", "users/1/my repo/a?b.txt"))
}
