// Package repository manages per-user file repositories stored in an object
// store.
//
// A repository has no record of its own: it exists while at least one object
// lives below users/{userID}/repositories/{name}/. Every operation returns a
// Result envelope; only programming errors panic.
package repository

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/objectstore"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Config tunes the Manager.
type Config struct {
	// MaxConcurrency bounds the store calls in flight per batch or tree level.
	MaxConcurrency int

	// MaxTreeDepth bounds how deep BuildTree descends.
	MaxTreeDepth int

	// CompensateFailedUploads makes Create delete the files it managed to
	// upload when the batch fails, so a failed Create leaves no repository.
	CompensateFailedUploads bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:          16,
		MaxTreeDepth:            64,
		CompensateFailedUploads: true,
	}
}

// Metrics receives one observation per Manager operation.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ObserveOperation records an operation ("create", "update", "delete",
	// "list") with its outcome.
	ObserveOperation(operation string, kind ErrorKind, duration time.Duration)

	// RecordFiles records how many objects an operation wrote or removed.
	RecordFiles(operation string, count int)
}

// Manager implements the repository operations on top of an object store.
//
// Existence checks and writes are separate store calls, so two concurrent
// Creates of the same repository can both pass the check. The store offers
// no test-and-set primitive to close that window.
type Manager struct {
	store   objectstore.Store
	config  Config
	metrics Metrics
}

// NewManager creates a Manager. Zero MaxConcurrency and MaxTreeDepth take
// their defaults. metrics may be nil.
func NewManager(store objectstore.Store, config Config, metrics Metrics) *Manager {
	if store == nil {
		panic("repository: nil object store")
	}

	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.MaxTreeDepth <= 0 {
		config.MaxTreeDepth = defaults.MaxTreeDepth
	}

	return &Manager{store: store, config: config, metrics: metrics}
}

func (m *Manager) observe(operation string, kind ErrorKind, start time.Time) {
	if m.metrics != nil {
		m.metrics.ObserveOperation(operation, kind, time.Since(start))
	}
}

func (m *Manager) recordFiles(operation string, count int) {
	if m.metrics != nil {
		m.metrics.RecordFiles(operation, count)
	}
}

// Exists reports whether userID owns a repository called name.
//
// It lists the user's repository prefixes and compares leaf names; there is
// no index to consult. A user without repositories yields false.
func (m *Manager) Exists(ctx context.Context, userID, name string) (bool, error) {
	if err := validateUserID(userID); err != nil {
		return false, err
	}

	prefix := userPrefix(userID)
	listing, err := m.store.List(ctx, prefix)
	if err != nil {
		return false, &StoreError{Op: "list", Key: prefix, Message: MsgExistenceFailed, Err: err}
	}

	for _, p := range listing.Prefixes {
		if objectstore.Leaf(p) == name {
			return true, nil
		}
	}
	return false, nil
}

// Create registers a new repository and uploads files into it.
//
// Checks run in order and stop at the first failure: userID present, name
// free of disallowed characters, repository absent, files present, every
// file name valid. Uploads then run concurrently and the whole batch must
// succeed.
func (m *Manager) Create(ctx context.Context, userID, name string, files []File) (result Result[*RepositoryInfo]) {
	start := time.Now()
	defer func() { m.observe("create", result.Kind, start) }()

	return m.write(ctx, "create", userID, name, files, false)
}

// Update uploads files into an existing repository. Files with an existing
// name are overwritten; files missing from the batch are left untouched.
func (m *Manager) Update(ctx context.Context, userID, name string, files []File) (result Result[*RepositoryInfo]) {
	start := time.Now()
	defer func() { m.observe("update", result.Kind, start) }()

	return m.write(ctx, "update", userID, name, files, true)
}

func (m *Manager) write(ctx context.Context, op, userID, name string, files []File, mustExist bool) Result[*RepositoryInfo] {
	if err := validateUserID(userID); err != nil {
		return m.fail(op, userID, name, err)
	}
	if err := validateRepositoryName(name); err != nil {
		return m.fail(op, userID, name, err)
	}

	exists, err := m.Exists(ctx, userID, name)
	if err != nil {
		return m.fail(op, userID, name, err)
	}
	if exists && !mustExist {
		return m.fail(op, userID, name, &ConflictError{UserID: userID, Name: name})
	}
	if !exists && mustExist {
		return m.fail(op, userID, name, &NotFoundError{UserID: userID, Name: name})
	}

	if err := validateFiles(files); err != nil {
		return m.fail(op, userID, name, err)
	}

	uploaded, err := m.upload(ctx, repositoryPrefix(userID, name), files)
	m.recordFiles(op, len(uploaded))
	if err != nil {
		// Update overwrites existing objects in place, so deleting what it
		// wrote would destroy data that predates the call.
		if !mustExist && m.config.CompensateFailedUploads {
			m.compensate(ctx, uploaded)
		}
		return m.fail(op, userID, name, err)
	}

	message := MsgCreated
	if mustExist {
		message = MsgUpdated
	}
	logger.Info("Repository %q of user %s: %s succeeded (%d files)", name, userID, op, len(files))

	return Ok(message, &RepositoryInfo{Name: name, User: UserRef{ID: userID}})
}

// upload puts every file below prefix and returns the keys that were written,
// which is a subset of the batch when an error is returned.
func (m *Manager) upload(ctx context.Context, prefix string, files []File) ([]string, error) {
	var mu sync.Mutex
	uploaded := make([]string, 0, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.MaxConcurrency)

	for _, f := range files {
		key := prefix + f.Name
		g.Go(func() error {
			if err := m.store.Put(gctx, key, f.Data); err != nil {
				return &StoreError{Op: "put", Key: key, Message: MsgUploadFailed, Err: err}
			}
			mu.Lock()
			uploaded = append(uploaded, key)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return uploaded, err
}

// compensate deletes keys written by a failed Create. Failures are logged;
// the caller reports the original upload error either way.
func (m *Manager) compensate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}

	// The request context may already be cancelled by the failed batch.
	ctx = context.WithoutCancel(ctx)

	var (
		mu   sync.Mutex
		errs error
	)

	var g errgroup.Group
	g.SetLimit(m.config.MaxConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			if err := m.store.Delete(ctx, key); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		logger.Error("Rollback of failed upload left %d of %d objects behind: %v",
			len(multierr.Errors(errs)), len(keys), errs)
		return
	}
	logger.Warn("Rolled back %d objects of a failed upload", len(keys))
}

// Delete removes every object of the repository.
//
// All descendant keys are collected first, walking nested sub-prefixes, and
// then deleted concurrently. The repository ceases to exist once its last
// object is gone.
func (m *Manager) Delete(ctx context.Context, userID, name string) (result Result[struct{}]) {
	start := time.Now()
	defer func() { m.observe("delete", result.Kind, start) }()

	if err := validateUserID(userID); err != nil {
		return m.failDelete(userID, name, err)
	}

	exists, err := m.Exists(ctx, userID, name)
	if err != nil {
		return m.failDelete(userID, name, err)
	}
	if !exists {
		return m.failDelete(userID, name, &NotFoundError{UserID: userID, Name: name})
	}

	keys, err := m.collectKeys(ctx, repositoryPrefix(userID, name))
	if err != nil {
		return m.failDelete(userID, name, err)
	}

	var (
		mu      sync.Mutex
		deleted int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.MaxConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			if err := m.store.Delete(gctx, key); err != nil {
				return &StoreError{Op: "delete", Key: key, Message: MsgDeleteFailed, Err: err}
			}
			mu.Lock()
			deleted++
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	m.recordFiles("delete", deleted)
	if err != nil {
		return m.failDelete(userID, name, err)
	}

	logger.Info("Repository %q of user %s: deleted %d objects", name, userID, len(keys))
	return Ok(MsgDeleted, struct{}{})
}

// List returns the tree of every repository owned by userID.
//
// userID is sanitized to [a-zA-Z0-9_-] before it becomes part of a key. An
// empty tree is a success.
func (m *Manager) List(ctx context.Context, userID string) (result Result[*Folder]) {
	start := time.Now()
	defer func() { m.observe("list", result.Kind, start) }()

	if userID == "" {
		return m.failList(userID, &ValidationError{Message: MsgNoUserID})
	}
	sanitized := SanitizeUserID(userID)
	if sanitized == "" {
		return m.failList(userID, &ValidationError{Message: MsgInvalidUserID})
	}

	tree, err := m.BuildTree(ctx, userPrefix(sanitized))
	if err != nil {
		return m.failList(userID, err)
	}

	if tree.Empty() {
		return Ok(MsgNoRepositories, tree)
	}
	return Ok(MsgListed, tree)
}

func (m *Manager) fail(op, userID, name string, err error) Result[*RepositoryInfo] {
	logFailure(op, userID, name, err)
	return Fail[*RepositoryInfo](err)
}

func (m *Manager) failDelete(userID, name string, err error) Result[struct{}] {
	logFailure("delete", userID, name, err)
	return Fail[struct{}](err)
}

func (m *Manager) failList(userID string, err error) Result[*Folder] {
	logFailure("list", userID, "", err)
	return Fail[*Folder](err)
}

// logFailure logs store failures as errors and rejected requests at debug.
func logFailure(op, userID, name string, err error) {
	result := Fail[struct{}](err)
	if result.Kind == KindStore {
		logger.Error("Repository %q of user %s: %s failed: %v", name, userID, op, err)
		return
	}
	logger.Debug("Repository %q of user %s: %s rejected: %v", name, userID, op, err)
}
