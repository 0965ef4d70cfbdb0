package objectstore

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Delimiter separates the segments of an object key.
const Delimiter = "/"

// Join builds a key from segments, dropping empty segments and redundant
// delimiters at the segment boundaries.
//
//	Join("users", "42", "repositories/", "docs") == "users/42/repositories/docs"
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, Delimiter)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, Delimiter)
}

// AsPrefix returns p with a trailing delimiter. The empty prefix (the root)
// is returned unchanged.
func AsPrefix(p string) string {
	if p == "" || strings.HasSuffix(p, Delimiter) {
		return p
	}
	return p + Delimiter
}

// Leaf returns the last segment of a key or prefix.
//
//	Leaf("users/42/repositories/docs/") == "docs"
//	Leaf("users/42/repositories/docs/a.txt") == "a.txt"
func Leaf(key string) string {
	key = strings.TrimSuffix(key, Delimiter)
	if i := strings.LastIndex(key, Delimiter); i >= 0 {
		return key[i+1:]
	}
	return key
}

// ValidateKey checks that key addresses a single object.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key: %w", ErrInvalidKey)
	}
	if strings.HasPrefix(key, Delimiter) || strings.HasSuffix(key, Delimiter) {
		return fmt.Errorf("key %q: leading or trailing delimiter: %w", key, ErrInvalidKey)
	}
	for _, segment := range strings.Split(key, Delimiter) {
		switch segment {
		case "", ".", "..":
			return fmt.Errorf("key %q: bad segment %q: %w", key, segment, ErrInvalidKey)
		}
	}
	return nil
}

// SplitListing groups the keys found under prefix into immediate
// sub-prefixes and items.
//
// It is used by backends that can only enumerate every descendant of a
// prefix (memory, badger) to emulate a delimiter listing. Keys that do not
// start with prefix are ignored.
func SplitListing(prefix string, keys []string) *Listing {
	prefix = AsPrefix(prefix)

	seen := make(map[string]struct{})
	listing := &Listing{Prefixes: []string{}, Items: []string{}}

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) || key == prefix {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, Delimiter); i >= 0 {
			sub := prefix + rest[:i+1]
			if _, ok := seen[sub]; !ok {
				seen[sub] = struct{}{}
				listing.Prefixes = append(listing.Prefixes, sub)
			}
			continue
		}
		listing.Items = append(listing.Items, key)
	}

	sort.Strings(listing.Prefixes)
	sort.Strings(listing.Items)
	return listing
}

// ObjectURL builds the download address of key below baseURL, escaping every
// key segment. It is used by the local backends, whose objects are served by
// the API's object route.
func ObjectURL(baseURL, key string) string {
	segments := strings.Split(key, Delimiter)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimSuffix(baseURL, Delimiter) + Delimiter + strings.Join(segments, Delimiter)
}
