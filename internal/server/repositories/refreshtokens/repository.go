// Package refreshtokens stores the opaque refresh tokens handed out at login.
// A token is redeemed by consuming it: reading and removing it is a single
// step, so two concurrent refreshes cannot both succeed.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

type Repository interface {
	// Create stores token.
	Create(ctx context.Context, token models.RefreshToken) error

	// Consume removes the token and returns it, or common.ErrorNotFound when
	// it was never issued or has already been redeemed. Expired tokens are
	// consumed like any other; the caller decides what expiry means.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// Reset removes every token.
	Reset(ctx context.Context) error
}
