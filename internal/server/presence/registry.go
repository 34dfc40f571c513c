// Package presence tracks which users are online and through which
// connection they are reachable. A user has at most one binding; binding a
// new connection evicts the previous one.
package presence

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/transport"
	"github.com/dmitrijs2005/gophrelay/internal/syncx"
)

// Entry is one binding in a snapshot.
type Entry struct {
	UserID string
	Conn   transport.Conn
}

// Registry maps user ids to connection handles. Map access is guarded by mu;
// multi-step operations for one user (bind with drain, send routing) are
// serialized with Lock.
type Registry struct {
	locks *syncx.KeyedMutex

	mu       sync.RWMutex
	bindings map[string]transport.Conn
	owners   map[transport.Conn]string
	online   map[string]struct{}

	logger logging.Logger
}

func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		locks:    syncx.NewKeyedMutex(),
		bindings: make(map[string]transport.Conn),
		owners:   make(map[transport.Conn]string),
		online:   make(map[string]struct{}),
		logger:   logger.With("module", "presence"),
	}
}

// Lock enters userID's critical section. Everything that must not
// interleave with a bind or unbind of userID runs while it is held.
func (r *Registry) Lock(userID string) (unlock func()) {
	return r.locks.Lock(userID)
}

// Bind installs conn as userID's binding and adds userID to the online set.
// A previous binding with a different handle is closed and returned.
// Rebinding the same handle is a no-op that returns nil.
func (r *Registry) Bind(ctx context.Context, userID string, conn transport.Conn) transport.Conn {
	r.mu.Lock()
	old, had := r.bindings[userID]
	if had && old != conn && r.owners[old] == userID {
		delete(r.owners, old)
	}
	r.bindings[userID] = conn
	r.owners[conn] = userID
	r.online[userID] = struct{}{}
	r.mu.Unlock()

	if !had || old == conn {
		r.logger.Info(ctx, "user bound", "user_id", userID, "conn_id", conn.ID())
		return nil
	}

	r.logger.Info(ctx, "replacing connection", "user_id", userID, "conn_id", conn.ID(), "evicted_conn_id", old.ID())
	if err := old.Close(); err != nil {
		r.logger.Warn(ctx, "closing evicted connection failed", "user_id", userID, "conn_id", old.ID(), "error", err)
	}
	return old
}

// Unbind removes userID's binding. When conn is non-nil the binding is only
// removed if it is still conn, so a stale handle never unbinds a newer
// connection. It reports whether a binding was removed.
func (r *Registry) Unbind(ctx context.Context, userID string, conn transport.Conn) bool {
	r.mu.Lock()
	current, ok := r.bindings[userID]
	if !ok || (conn != nil && current != conn) {
		r.mu.Unlock()
		return false
	}
	delete(r.bindings, userID)
	if r.owners[current] == userID {
		delete(r.owners, current)
	}
	delete(r.online, userID)
	r.mu.Unlock()

	r.logger.Info(ctx, "user unbound", "user_id", userID, "conn_id", current.ID())
	return true
}

// UserFor returns the user currently bound to conn.
func (r *Registry) UserFor(conn transport.Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.owners[conn]
	return id, ok
}

// IsOnline reports online-set membership.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.online[userID]
	return ok
}

// Lookup returns userID's bound handle, live or not.
func (r *Registry) Lookup(userID string) (transport.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bindings[userID]
	return c, ok
}

// Live returns userID's handle only when it reports itself connected.
func (r *Registry) Live(userID string) (transport.Conn, bool) {
	c, ok := r.Lookup(userID)
	if !ok || !c.IsConnected() {
		return nil, false
	}
	return c, true
}

// Bindings returns a snapshot of all bindings ordered by user id.
func (r *Registry) Bindings() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.bindings))
	for id, c := range r.bindings {
		out = append(out, Entry{UserID: id, Conn: c})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// OnlineIDs returns the online set, sorted.
func (r *Registry) OnlineIDs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.online))
	for id := range r.online {
		out = append(out, id)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

// UserCounter counts registered users.
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// QueueCounter counts queued messages.
type QueueCounter interface {
	Total(ctx context.Context) (int, error)
}

// Stats combines presence counts with the user and queue totals.
func (r *Registry) Stats(ctx context.Context, users UserCounter, queue QueueCounter) (models.Stats, error) {
	total, err := users.Count(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	queued, err := queue.Total(ctx)
	if err != nil {
		return models.Stats{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.Stats{
		TotalUsers:          total,
		OnlineCount:         len(r.online),
		BoundConnections:    len(r.bindings),
		TotalQueuedMessages: queued,
	}, nil
}

// Reset closes every bound connection and empties the registry.
func (r *Registry) Reset(ctx context.Context) {
	r.mu.Lock()
	old := r.bindings
	r.bindings = make(map[string]transport.Conn)
	r.owners = make(map[transport.Conn]string)
	r.online = make(map[string]struct{})
	r.mu.Unlock()

	for id, c := range old {
		if err := c.Close(); err != nil {
			r.logger.Warn(ctx, "closing connection on reset failed", "user_id", id, "error", err)
		}
	}
	r.logger.Info(ctx, "presence reset", "count", len(old))
}
