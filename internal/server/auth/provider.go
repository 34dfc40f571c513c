package auth

import (
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

// Principal is a verified identity.
type Principal struct {
	UserID string
	Email  string
}

// Provider hashes and checks credentials and issues and verifies access
// tokens. The core trusts a Principal once Provider has produced it.
type Provider struct {
	secret    []byte
	accessTTL time.Duration
	cost      int
}

// NewProvider builds a Provider signing with secret.
func NewProvider(secret string, accessTTL time.Duration, bcryptCost int) *Provider {
	return &Provider{secret: []byte(secret), accessTTL: accessTTL, cost: bcryptCost}
}

// HashSecret turns a plaintext password into the stored credential.
func (p *Provider) HashSecret(password string) ([]byte, error) {
	return HashPassword(password, p.cost)
}

// Authenticate checks password against the stored credential of user.
func (p *Provider) Authenticate(user *models.User, password string) (Principal, error) {
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		return Principal{}, common.ErrAuthFailed
	}
	return Principal{UserID: user.ID, Email: user.Email}, nil
}

// IssueToken mints an access token for principal.
func (p *Provider) IssueToken(principal Principal) (string, error) {
	return GenerateToken(principal.UserID, principal.Email, p.secret, p.accessTTL)
}

// VerifyToken validates token and returns its principal.
func (p *Provider) VerifyToken(token string) (Principal, error) {
	claims, err := ParseToken(token, p.secret)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: claims.UserID, Email: claims.Email}, nil
}
