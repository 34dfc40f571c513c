// Package users declares the storage contract for directory records and
// provides in-memory and PostgreSQL implementations.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

// Repository stores users and the email/mobile uniqueness index. Callers
// pass already normalized values.
type Repository interface {
	// Create stores user. Fails with common.ErrDuplicateIdentity when the
	// email or mobile is already taken; nothing is stored in that case.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns the user or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetIDByKey resolves an email or mobile to a user id, or common.ErrorNotFound.
	GetIDByKey(ctx context.Context, key string) (string, error)

	// UpdateProfile applies the non-nil fields of upd and sets UpdatedAt in one
	// atomic step. A changed email is repointed in the index; taking another
	// user's key fails with common.ErrDuplicateIdentity.
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate, at time.Time) (*models.User, error)

	// List returns all users in insertion order.
	List(ctx context.Context) ([]*models.User, error)

	// Count returns the number of users.
	Count(ctx context.Context) (int, error)

	// Reset removes every user.
	Reset(ctx context.Context) error
}
