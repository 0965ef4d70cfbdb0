package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/dittorepo/pkg/identity"
)

// accountNamespace prefixes account records, keyed by normalized email.
//
//	acct:ada@example.com -> accountRecord (JSON)
const accountNamespace = "acct:"

// accountRecord is the persisted form of an account.
type accountRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// BadgerProvider stores accounts in an embedded BadgerDB.
//
// Registration runs the existence check and the insert in one read-write
// transaction, so concurrent registrations of the same email cannot both
// succeed: the loser gets badger.ErrConflict, reported as ErrAccountExists.
type BadgerProvider struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// BadgerProviderConfig configures a BadgerProvider.
type BadgerProviderConfig struct {
	// DBPath is the BadgerDB directory. Ignored when InMemory is set.
	DBPath string

	// InMemory keeps the database off disk.
	InMemory bool
}

// NewBadgerProvider opens (or creates) the account database.
func NewBadgerProvider(ctx context.Context, config BadgerProviderConfig) (*BadgerProvider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger identity provider requires a db path")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerProvider{db: db}, nil
}

func accountKey(email string) []byte {
	return []byte(accountNamespace + email)
}

func (p *BadgerProvider) CreateAccount(ctx context.Context, email, password string) (*identity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	email, err := identity.ValidateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return nil, err
	}

	record := accountRecord{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	value, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode account: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, identity.ErrProviderClosed
	}

	err = p.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(accountKey(email))
		if err == nil {
			return identity.ErrAccountExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(accountKey(email), value)
	})
	switch {
	case err == nil:
		return &identity.Account{ID: record.ID, Email: record.Email}, nil
	case errors.Is(err, identity.ErrAccountExists), errors.Is(err, badger.ErrConflict):
		return nil, identity.ErrAccountExists
	default:
		return nil, fmt.Errorf("failed to store account: %w", err)
	}
}

func (p *BadgerProvider) Authenticate(ctx context.Context, email, password string) (*identity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, identity.ErrProviderClosed
	}

	var record accountRecord
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(identity.NormalizeEmail(email)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, identity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if !identity.CheckPassword(record.PasswordHash, password) {
		return nil, identity.ErrInvalidCredentials
	}
	return &identity.Account{ID: record.ID, Email: record.Email}, nil
}

// Close closes the database. Subsequent calls are no-ops.
func (p *BadgerProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
