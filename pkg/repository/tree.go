package repository

import (
	"context"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/objectstore"
	"golang.org/x/sync/errgroup"
)

// BuildTree reconstructs the folder tree below prefix.
//
// Every level is listed once. Sub-prefixes are walked concurrently with the
// URL resolution of the files at the same level, bounded by MaxConcurrency
// per level. A child is listed only after its parent's listing returned.
//
// Failure model:
//   - A failing List anywhere in the walk aborts it with a *StoreError.
//   - A failing URL resolution drops that file and logs a warning.
//   - Sub-prefixes deeper than MaxTreeDepth are left out with a warning.
//
// The returned root has no name; its Files and Folders are sorted by name
// and never nil.
func (m *Manager) BuildTree(ctx context.Context, prefix string) (*Folder, error) {
	root, err := m.walk(ctx, objectstore.AsPrefix(prefix), 0)
	if err != nil {
		return nil, err
	}
	root.Name = ""
	return root, nil
}

func (m *Manager) walk(ctx context.Context, prefix string, depth int) (*Folder, error) {
	listing, err := m.store.List(ctx, prefix)
	if err != nil {
		return nil, &StoreError{Op: "list", Key: prefix, Message: MsgListFailed, Err: err}
	}

	// Results are written by index so no locking is needed.
	folders := make([]*Folder, len(listing.Prefixes))
	files := make([]*FileEntry, len(listing.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.MaxConcurrency)

	for i, sub := range listing.Prefixes {
		if depth+1 > m.config.MaxTreeDepth {
			logger.Warn("Not descending into %s: tree depth limit %d reached", sub, m.config.MaxTreeDepth)
			continue
		}
		g.Go(func() error {
			child, err := m.walk(gctx, sub, depth+1)
			if err != nil {
				return err
			}
			folders[i] = child
			return nil
		})
	}

	for i, key := range listing.Items {
		g.Go(func() error {
			url, err := m.store.URL(gctx, key)
			if err != nil {
				logger.Warn("Skipping %s: failed to resolve URL: %v", key, err)
				return nil
			}
			files[i] = &FileEntry{Name: objectstore.Leaf(key), URL: url}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	folder := newFolder(objectstore.Leaf(prefix))
	for _, f := range folders {
		if f != nil {
			folder.Folders = append(folder.Folders, f)
		}
	}
	for _, f := range files {
		if f != nil {
			folder.Files = append(folder.Files, *f)
		}
	}
	folder.sortChildren()

	return folder, nil
}

// collectKeys returns every object key below prefix.
//
// The walk is breadth-first over an explicit frontier, so arbitrarily deep
// nesting costs heap rather than stack, and no depth bound applies: a delete
// must not leave residual keys behind.
func (m *Manager) collectKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	frontier := []string{objectstore.AsPrefix(prefix)}

	for len(frontier) > 0 {
		listings := make([]*objectstore.Listing, len(frontier))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.config.MaxConcurrency)
		for i, p := range frontier {
			g.Go(func() error {
				listing, err := m.store.List(gctx, p)
				if err != nil {
					return &StoreError{Op: "list", Key: p, Message: MsgDeleteFailed, Err: err}
				}
				listings[i] = listing
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []string
		for _, listing := range listings {
			keys = append(keys, listing.Items...)
			next = append(next, listing.Prefixes...)
		}
		frontier = next
	}

	return keys, nil
}
