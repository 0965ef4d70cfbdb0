// Package testing provides a conformance suite for identity.Provider
// implementations.
package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/dittorepo/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ProviderTestSuite runs the same checks against any Provider.
type ProviderTestSuite struct {
	NewProvider func() identity.Provider
}

func (suite *ProviderTestSuite) newProvider(t *testing.T) identity.Provider {
	t.Helper()
	p := suite.NewProvider()
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// Run executes every test of the suite.
func (suite *ProviderTestSuite) Run(t *testing.T) {
	t.Run("CreateAndAuthenticate", suite.testCreateAndAuthenticate)
	t.Run("EmailIsCaseInsensitive", suite.testEmailIsCaseInsensitive)
	t.Run("DuplicateEmail", suite.testDuplicateEmail)
	t.Run("WrongPassword", suite.testWrongPassword)
	t.Run("UnknownEmail", suite.testUnknownEmail)
	t.Run("InvalidInput", suite.testInvalidInput)
	t.Run("DistinctIDs", suite.testDistinctIDs)
}

func (suite *ProviderTestSuite) testCreateAndAuthenticate(t *testing.T) {
	p := suite.newProvider(t)
	ctx := context.Background()

	created, err := p.CreateAccount(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)

	authed, err := p.Authenticate(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created, authed)
}

func (suite *ProviderTestSuite) testEmailIsCaseInsensitive(t *testing.T) {
	p := suite.newProvider(t)
	ctx := context.Background()

	created, err := p.CreateAccount(ctx, " Ada@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)

	authed, err := p.Authenticate(ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, authed.ID)
}

func (suite *ProviderTestSuite) testDuplicateEmail(t *testing.T) {
	p := suite.newProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = p.CreateAccount(ctx, "ada@example.com", "another")
	assert.True(t, errors.Is(err, identity.ErrAccountExists), "got %v", err)
}

func (suite *ProviderTestSuite) testWrongPassword(t *testing.T) {
	p := suite.newProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = p.Authenticate(ctx, "ada@example.com", "secret2")
	assert.True(t, errors.Is(err, identity.ErrInvalidCredentials), "got %v", err)
}

func (suite *ProviderTestSuite) testUnknownEmail(t *testing.T) {
	p := suite.newProvider(t)

	_, err := p.Authenticate(context.Background(), "nobody@example.com", "secret1")
	assert.True(t, errors.Is(err, identity.ErrInvalidCredentials), "got %v", err)
}

func (suite *ProviderTestSuite) testInvalidInput(t *testing.T) {
	p := suite.newProvider(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"", "secret1"},
		{"not-an-email", "secret1"},
		{"ada@example.com", ""},
		{"ada@example.com", "12345"},
	} {
		_, err := p.CreateAccount(ctx, tc.email, tc.password)
		assert.True(t, errors.Is(err, identity.ErrInvalidInput), "%q/%q: got %v", tc.email, tc.password, err)
	}
}

func (suite *ProviderTestSuite) testDistinctIDs(t *testing.T) {
	p := suite.newProvider(t)
	ctx := context.Background()

	a, err := p.CreateAccount(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	b, err := p.CreateAccount(ctx, "b@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
