package badger

import (
	"context"
	"testing"

	"github.com/marmos91/dittorepo/pkg/identity"
	identitytesting "github.com/marmos91/dittorepo/pkg/identity/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerProvider(t *testing.T) {
	suite := &identitytesting.ProviderTestSuite{
		NewProvider: func() identity.Provider {
			p, err := NewBadgerProvider(context.Background(), BadgerProviderConfig{InMemory: true})
			require.NoError(t, err)
			return p
		},
	}
	suite.Run(t)
}

func TestBadgerProvider_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := NewBadgerProvider(ctx, BadgerProviderConfig{DBPath: dir})
	require.NoError(t, err)
	created, err := p.CreateAccount(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, p.Close())

	reopened, err := NewBadgerProvider(ctx, BadgerProviderConfig{DBPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	authed, err := reopened.Authenticate(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, authed.ID)
}
