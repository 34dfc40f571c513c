// Package mailbox declares storage for per-recipient queues of undelivered
// messages, with in-memory and PostgreSQL implementations.
package mailbox

import (
	"context"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

// Repository keeps FIFO queues keyed by recipient id. Messages are read
// with Peek and only leave the queue through Ack, so a message is removed
// after it was handed over and never before. Implementations do not
// synchronize across calls; the mailbox component serializes access per
// recipient.
type Repository interface {
	// Append adds msg at the tail of recipientID's queue.
	Append(ctx context.Context, recipientID string, msg models.Message) error

	// Peek returns the whole queue in order without removing it. An absent
	// queue yields an empty slice.
	Peek(ctx context.Context, recipientID string) ([]models.Message, error)

	// Ack removes one message from recipientID's queue. Acknowledging a
	// message that is not queued is not an error.
	Ack(ctx context.Context, recipientID, messageID string) error

	// Count returns the queue length for recipientID.
	Count(ctx context.Context, recipientID string) (int, error)

	// Total returns the number of queued messages across all recipients.
	Total(ctx context.Context) (int, error)

	// Reset drops every queue.
	Reset(ctx context.Context) error
}
