// Package delivery routes messages and connection lifecycle events through
// the presence registry, the offline mailbox and the broadcast dispatcher.
//
// Every operation that touches one user's binding runs under that user's
// presence lock: bind with drain, unbind, and the lookup-then-deliver step
// of a send. A send to a user therefore either reaches the live connection,
// or lands in the mailbox before (and is flushed by) the next bind.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/presence"
	"github.com/dmitrijs2005/gophrelay/internal/server/transport"
	"github.com/google/uuid"
)

// Directory answers whether a user exists.
type Directory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Mailbox is the offline queue.
type Mailbox interface {
	Enqueue(ctx context.Context, recipientID string, msg models.Message) error
	Drain(ctx context.Context, recipientID string, conn transport.Conn) (int, error)
	Total(ctx context.Context) (int, error)
}

// Announcer publishes presence changes.
type Announcer interface {
	AnnouncePresence(ctx context.Context, userID string, isOnline bool) int
}

// Engine is the presence-and-delivery core.
type Engine struct {
	directory Directory
	registry  *presence.Registry
	mailbox   Mailbox
	announcer Announcer
	timeout   time.Duration
	logger    logging.Logger
	now       func() time.Time
	newID     func() string
}

// NewEngine wires the core. timeout bounds each live delivery attempt.
func NewEngine(dir Directory, reg *presence.Registry, mbox Mailbox, ann Announcer, timeout time.Duration, logger logging.Logger) *Engine {
	return &Engine{
		directory: dir,
		registry:  reg,
		mailbox:   mbox,
		announcer: ann,
		timeout:   timeout,
		logger:    logger.With("module", "delivery"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Connect binds conn to userID, evicting any previous connection, flushes
// the user's mailbox to conn and announces the user online. A drain failure
// is logged; whatever was not delivered stays queued.
func (e *Engine) Connect(ctx context.Context, userID string, conn transport.Conn) error {
	ok, err := e.directory.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorNotFound
	}

	unlock := e.registry.Lock(userID)
	defer unlock()

	e.registry.Bind(ctx, userID, conn)

	if n, err := e.mailbox.Drain(ctx, userID, conn); err != nil {
		e.logger.Warn(ctx, "pending messages not fully delivered", "user_id", userID, "conn_id", conn.ID(), "delivered", n, "error", err)
	} else if n > 0 {
		e.logger.Info(ctx, "pending messages delivered", "user_id", userID, "count", n)
	}

	e.announcer.AnnouncePresence(ctx, userID, true)
	return nil
}

// Disconnect unbinds userID whatever handle it holds. It reports whether a
// binding was removed; the offline announcement is made only then.
func (e *Engine) Disconnect(ctx context.Context, userID string) bool {
	unlock := e.registry.Lock(userID)
	defer unlock()

	if !e.registry.Unbind(ctx, userID, nil) {
		return false
	}
	e.announcer.AnnouncePresence(ctx, userID, false)
	return true
}

// DisconnectConn unbinds whichever user conn is bound to, if conn is still
// that user's current handle. Closing an evicted or never-authenticated
// connection is a no-op.
func (e *Engine) DisconnectConn(ctx context.Context, conn transport.Conn) bool {
	userID, ok := e.registry.UserFor(conn)
	if !ok {
		return false
	}

	unlock := e.registry.Lock(userID)
	defer unlock()

	if !e.registry.Unbind(ctx, userID, conn) {
		return false
	}
	e.announcer.AnnouncePresence(ctx, userID, false)
	return true
}

// Send creates a message from senderID to recipientID. A live recipient gets
// it immediately and the returned message has Delivered set; otherwise, or
// when the live delivery fails, it is queued and Delivered stays false.
// Only unknown identities and storage failures are errors.
func (e *Engine) Send(ctx context.Context, senderID, recipientID, content string) (models.Message, error) {
	if ok, err := e.directory.Exists(ctx, senderID); err != nil {
		return models.Message{}, err
	} else if !ok {
		return models.Message{}, common.ErrUnknownSender
	}
	if ok, err := e.directory.Exists(ctx, recipientID); err != nil {
		return models.Message{}, err
	} else if !ok {
		return models.Message{}, common.ErrUnknownRecipient
	}

	msg := models.Message{
		ID:          e.newID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Timestamp:   e.now(),
	}

	unlock := e.registry.Lock(recipientID)
	defer unlock()

	if conn, ok := e.registry.Live(recipientID); ok {
		live := msg
		live.Delivered = true
		err := e.deliver(ctx, conn, live)
		if err == nil {
			e.logger.Info(ctx, "message delivered", "message_id", msg.ID, "sender_id", senderID, "recipient_id", recipientID, "conn_id", conn.ID())
			return live, nil
		}
		e.logger.Warn(ctx, "live delivery failed, queueing", "message_id", msg.ID, "recipient_id", recipientID, "conn_id", conn.ID(), "error", err)
	}

	if err := e.mailbox.Enqueue(ctx, recipientID, msg); err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return msg, nil
}

// Stats reports users, presence and queue totals.
func (e *Engine) Stats(ctx context.Context) (models.Stats, error) {
	return e.registry.Stats(ctx, e.directory, e.mailbox)
}

func (e *Engine) deliver(ctx context.Context, conn transport.Conn, msg models.Message) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return conn.Deliver(ctx, models.EventMessage, msg)
}
