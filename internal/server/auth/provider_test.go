package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestProvider() *Provider {
	return NewProvider("secret", time.Hour, bcrypt.MinCost)
}

func TestProvider_AuthenticateRoundTrip(t *testing.T) {
	p := newTestProvider()

	hash, err := p.HashSecret("password123")
	require.NoError(t, err)

	u := &models.User{ID: "u1", Email: "a@x.io", PasswordHash: hash}

	principal, err := p.Authenticate(u, "password123")
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", Email: "a@x.io"}, principal)

	_, err = p.Authenticate(u, "wrong")
	assert.ErrorIs(t, err, common.ErrAuthFailed)

	_, err = p.Authenticate(nil, "password123")
	assert.ErrorIs(t, err, common.ErrAuthFailed)
}

func TestProvider_IssueAndVerify(t *testing.T) {
	p := newTestProvider()

	tok, err := p.IssueToken(Principal{UserID: "u1", Email: "a@x.io"})
	require.NoError(t, err)

	got, err := p.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	other := NewProvider("other", time.Hour, bcrypt.MinCost)
	_, err = other.VerifyToken(tok)
	assert.True(t, errors.Is(err, common.ErrInvalidToken))
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 100), bcrypt.MinCost)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestHashPassword_OutOfRangeCostUsesDefault(t *testing.T) {
	hash, err := HashPassword("pw", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost(hash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
