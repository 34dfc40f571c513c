package session

import (
	"context"

	"github.com/dmitrijs2005/gophrelay/internal/client/models"
)

// Repository persists at most one signed-in session.
type Repository interface {
	// Load returns (nil, nil) when no session is stored.
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s models.Session) error
	Clear(ctx context.Context) error
}
