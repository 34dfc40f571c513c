// Package mailbox queues messages for recipients that are not reachable and
// flushes the queue to the recipient's connection when it binds again.
package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/mailbox"
	"github.com/dmitrijs2005/gophrelay/internal/server/transport"
	"github.com/dmitrijs2005/gophrelay/internal/syncx"
)

// Mailbox serializes enqueue and drain per recipient over a queue store.
type Mailbox struct {
	repo    mailbox.Repository
	locks   *syncx.KeyedMutex
	timeout time.Duration
	logger  logging.Logger
}

// New builds a Mailbox. timeout bounds each single delivery during a drain;
// zero means no bound beyond the caller's context.
func New(repo mailbox.Repository, timeout time.Duration, logger logging.Logger) *Mailbox {
	return &Mailbox{
		repo:    repo,
		locks:   syncx.NewKeyedMutex(),
		timeout: timeout,
		logger:  logger.With("module", "mailbox"),
	}
}

// Enqueue appends msg to recipientID's queue.
func (m *Mailbox) Enqueue(ctx context.Context, recipientID string, msg models.Message) error {
	unlock := m.locks.Lock(recipientID)
	defer unlock()

	msg.Delivered = false
	if err := m.repo.Append(ctx, recipientID, msg); err != nil {
		return fmt.Errorf("error queueing message: %w", err)
	}

	m.logger.Info(ctx, "message queued", "recipient_id", recipientID, "message_id", msg.ID)
	return nil
}

// Drain delivers recipientID's queue to conn in order, marking each message
// delivered. A message leaves the queue only once its delivery succeeded,
// so whatever was not delivered stays queued in its original order. A
// failed delivery stops the drain with an error wrapping
// common.ErrTransport. It returns how many messages were delivered.
func (m *Mailbox) Drain(ctx context.Context, recipientID string, conn transport.Conn) (int, error) {
	unlock := m.locks.Lock(recipientID)
	defer unlock()

	queued, err := m.repo.Peek(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("error reading queue: %w", err)
	}
	if len(queued) == 0 {
		return 0, nil
	}

	for i, msg := range queued {
		msg.Delivered = true
		if err := m.deliver(ctx, conn, msg); err != nil {
			m.logger.Warn(ctx, "drain interrupted", "recipient_id", recipientID, "conn_id", conn.ID(), "delivered", i, "pending", len(queued)-i, "error", err)
			return i, fmt.Errorf("%w: %v", common.ErrTransport, err)
		}
		// An unacknowledged message is delivered again on the next drain.
		if err := m.repo.Ack(ctx, recipientID, msg.ID); err != nil {
			m.logger.Error(ctx, "acknowledging delivered message failed", "recipient_id", recipientID, "message_id", msg.ID, "error", err)
			return i + 1, fmt.Errorf("error acknowledging message %s: %w", msg.ID, err)
		}
	}

	m.logger.Info(ctx, "mailbox drained", "recipient_id", recipientID, "conn_id", conn.ID(), "count", len(queued))
	return len(queued), nil
}

// Pending returns the number of queued messages for recipientID.
func (m *Mailbox) Pending(ctx context.Context, recipientID string) (int, error) {
	return m.repo.Count(ctx, recipientID)
}

// Total returns the number of queued messages across all recipients.
func (m *Mailbox) Total(ctx context.Context) (int, error) {
	return m.repo.Total(ctx)
}

// Reset drops every queue.
func (m *Mailbox) Reset(ctx context.Context) error {
	return m.repo.Reset(ctx)
}

func (m *Mailbox) deliver(ctx context.Context, conn transport.Conn, msg models.Message) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return conn.Deliver(ctx, models.EventMessage, msg)
}
