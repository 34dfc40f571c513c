package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/presence"
	"github.com/dmitrijs2005/gophrelay/internal/server/transport/transporttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type staticBindings []presence.Entry

func (s staticBindings) Bindings() []presence.Entry { return s }

func setup(t *testing.T) (*Dispatcher, map[string]*transporttest.Conn) {
	t.Helper()
	conns := map[string]*transporttest.Conn{
		"alice": transporttest.NewConn("ha"),
		"bob":   transporttest.NewConn("hb"),
		"carol": transporttest.NewConn("hc"),
	}
	bindings := staticBindings{
		{UserID: "alice", Conn: conns["alice"]},
		{UserID: "bob", Conn: conns["bob"]},
		{UserID: "carol", Conn: conns["carol"]},
	}
	users := fakeUsers{
		"alice": {ID: "alice", Name: "Alice Johnson"},
		"bob":   {ID: "bob", Name: "Bob Smith"},
		"carol": {ID: "carol", Name: "Carol Davis"},
	}
	return New(bindings, users, 2, time.Second, logging.Nop()), conns
}

func TestAnnouncePresence_ExcludesSelf(t *testing.T) {
	d, conns := setup(t)

	n := d.AnnouncePresence(context.Background(), "alice", true)

	assert.Equal(t, 2, n)
	assert.Empty(t, conns["alice"].Deliveries())
	for _, id := range []string{"bob", "carol"} {
		ev := conns[id].Events(models.EventUserStatus)
		require.Len(t, ev, 1)
		p := ev[0].Payload.(models.PresenceEvent)
		assert.Equal(t, "alice", p.UserID)
		assert.True(t, p.IsOnline)
		assert.Equal(t, "Alice Johnson", p.UserName)
		assert.False(t, p.Timestamp.IsZero())
	}
}

func TestAnnouncePresence_FailureDoesNotAbortOthers(t *testing.T) {
	d, conns := setup(t)
	conns["bob"].SetFail(true)

	n := d.AnnouncePresence(context.Background(), "alice", false)

	assert.Equal(t, 1, n)
	assert.Len(t, conns["carol"].Events(models.EventUserStatus), 1)
}

func TestAnnouncePresence_UnknownUserSkipped(t *testing.T) {
	d, conns := setup(t)

	assert.Zero(t, d.AnnouncePresence(context.Background(), "ghost", true))
	for _, c := range conns {
		assert.Empty(t, c.Deliveries())
	}
}

func TestAnnounceProfileUpdate_IncludesOwner(t *testing.T) {
	d, conns := setup(t)
	at := time.Now()

	n := d.AnnounceProfileUpdate(context.Background(), models.PublicUser{
		ID: "alice", Name: "Alicia", Email: "new@x.io", Mobile: "1", UpdatedAt: at,
	})

	assert.Equal(t, 3, n)
	for _, c := range conns {
		ev := c.Events(models.EventProfileUpdated)
		require.Len(t, ev, 1)
		assert.Equal(t, models.ProfileEvent{ID: "alice", Name: "Alicia", Email: "new@x.io", Mobile: "1", UpdatedAt: at}, ev[0].Payload)
	}
}

func TestFanOut_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	var mu sync.Mutex

	var bindings staticBindings
	for i := 0; i < 8; i++ {
		c := transporttest.NewConn("h")
		c.OnDeliver(func(transporttest.Delivery) {
			n := inFlight.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		})
		bindings = append(bindings, presence.Entry{UserID: string(rune('a' + i)), Conn: c})
	}

	d := New(bindings, fakeUsers{}, 3, time.Second, logging.Nop())
	n := d.AnnounceProfileUpdate(context.Background(), models.PublicUser{ID: "x"})

	assert.Equal(t, 8, n)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}
