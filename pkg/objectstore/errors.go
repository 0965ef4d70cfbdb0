package objectstore

import "errors"

// ============================================================================
// Standard Object Store Errors
// ============================================================================

// Implementations wrap these errors with context so callers can match them
// with errors.Is:
//
//	if !found {
//	    return fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
//	}

var (
	// ErrObjectNotFound indicates the requested key does not exist.
	//
	// Returned by Get and URL. Delete never returns it (deletion is
	// idempotent) and List reports missing prefixes as an empty Listing.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidKey indicates a malformed object key.
	//
	// Keys must be non-empty, must not start or end with the delimiter and
	// must not contain empty, "." or ".." segments.
	ErrInvalidKey = errors.New("invalid object key")

	// ErrStoreClosed indicates the store was used after Close.
	ErrStoreClosed = errors.New("object store closed")
)
