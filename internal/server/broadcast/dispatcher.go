// Package broadcast fans presence and profile events out to connected
// clients. Fan-out is best effort: a failed delivery is logged and never
// stops delivery to the remaining connections.
package broadcast

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/presence"
	"golang.org/x/sync/errgroup"
)

// BindingSource lists the current connection bindings.
type BindingSource interface {
	Bindings() []presence.Entry
}

// UserSource resolves user records.
type UserSource interface {
	Get(ctx context.Context, userID string) (*models.User, error)
}

// Dispatcher delivers one event to many connections concurrently.
type Dispatcher struct {
	bindings BindingSource
	users    UserSource
	limit    int
	timeout  time.Duration
	logger   logging.Logger
	now      func() time.Time
}

// New builds a Dispatcher running at most concurrency deliveries at once,
// each bounded by timeout.
func New(bindings BindingSource, users UserSource, concurrency int, timeout time.Duration, logger logging.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		bindings: bindings,
		users:    users,
		limit:    concurrency,
		timeout:  timeout,
		logger:   logger.With("module", "broadcast"),
		now:      time.Now,
	}
}

// AnnouncePresence tells every connection except userID's own that userID
// went online or offline. Unknown users are not announced. It returns the
// number of successful deliveries.
func (d *Dispatcher) AnnouncePresence(ctx context.Context, userID string, isOnline bool) int {
	user, err := d.users.Get(ctx, userID)
	if err != nil {
		d.logger.Warn(ctx, "presence not announced", "user_id", userID, "error", err)
		return 0
	}

	event := models.PresenceEvent{
		UserID:    userID,
		IsOnline:  isOnline,
		UserName:  user.Name,
		Timestamp: d.now(),
	}

	all := d.bindings.Bindings()
	targets := make([]presence.Entry, 0, len(all))
	for _, e := range all {
		if e.UserID != userID {
			targets = append(targets, e)
		}
	}

	n := d.fanOut(ctx, targets, models.EventUserStatus, event)
	d.logger.Info(ctx, "presence announced", "user_id", userID, "online", isOnline, "targets", len(targets), "delivered", n)
	return n
}

// AnnounceProfileUpdate tells every connection, the owner's included, about
// a profile change.
func (d *Dispatcher) AnnounceProfileUpdate(ctx context.Context, user models.PublicUser) int {
	targets := d.bindings.Bindings()
	n := d.fanOut(ctx, targets, models.EventProfileUpdated, models.NewProfileEvent(user))
	d.logger.Info(ctx, "profile update announced", "user_id", user.ID, "targets", len(targets), "delivered", n)
	return n
}

func (d *Dispatcher) fanOut(ctx context.Context, targets []presence.Entry, event string, payload any) int {
	var delivered atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.limit)

	for _, target := range targets {
		g.Go(func() error {
			dctx := ctx
			if d.timeout > 0 {
				var cancel context.CancelFunc
				dctx, cancel = context.WithTimeout(ctx, d.timeout)
				defer cancel()
			}
			if err := target.Conn.Deliver(dctx, event, payload); err != nil {
				d.logger.Warn(ctx, "broadcast delivery failed", "event", event, "user_id", target.UserID, "conn_id", target.Conn.ID(), "error", err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(delivered.Load())
}
