package messages

import (
	"context"

	"github.com/dmitrijs2005/gophrelay/internal/client/models"
)

// Repository is the local log of received messages.
type Repository interface {
	// Save stores m unless a message with the same id is already logged.
	// It reports whether m was stored.
	Save(ctx context.Context, m models.Message) (bool, error)
	// List returns logged messages in the order they were received. A
	// non-empty senderID restricts the result to that sender.
	List(ctx context.Context, senderID string) ([]models.Message, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
