package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/marmos91/dittorepo/pkg/identity"
)

type account struct {
	identity.Account
	passwordHash string
}

// MemoryProvider keeps accounts in a map. Accounts are lost on restart.
type MemoryProvider struct {
	mu       sync.RWMutex
	accounts map[string]*account // by normalized email
	closed   bool
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{accounts: make(map[string]*account)}
}

func (p *MemoryProvider) CreateAccount(ctx context.Context, email, password string) (*identity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	email, err := identity.ValidateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	// Hash outside the lock.
	hash, err := identity.HashPassword(password)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, identity.ErrProviderClosed
	}
	if _, ok := p.accounts[email]; ok {
		return nil, identity.ErrAccountExists
	}

	acc := &account{
		Account:      identity.Account{ID: uuid.NewString(), Email: email},
		passwordHash: hash,
	}
	p.accounts[email] = acc

	out := acc.Account
	return &out, nil
}

func (p *MemoryProvider) Authenticate(ctx context.Context, email, password string) (*identity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, identity.ErrProviderClosed
	}
	acc, ok := p.accounts[identity.NormalizeEmail(email)]
	p.mu.RUnlock()

	if !ok || !identity.CheckPassword(acc.passwordHash, password) {
		return nil, identity.ErrInvalidCredentials
	}

	out := acc.Account
	return &out, nil
}

func (p *MemoryProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
