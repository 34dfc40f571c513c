package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/broadcast"
	"github.com/dmitrijs2005/gophrelay/internal/server/config"
	"github.com/dmitrijs2005/gophrelay/internal/server/delivery"
	"github.com/dmitrijs2005/gophrelay/internal/server/directory"
	"github.com/dmitrijs2005/gophrelay/internal/server/mailbox"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/presence"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophrelay/internal/server/seed"
	"github.com/dmitrijs2005/gophrelay/internal/server/services"
	"github.com/dmitrijs2005/gophrelay/internal/server/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relay struct {
	url   string
	users *services.UserService
	chat  *services.ChatService
}

func newRelay(t *testing.T) *relay {
	t.Helper()
	log := logging.Nop()
	cfg := &config.Config{}
	cfg.LoadDefaults()

	rm := repomanager.NewMemoryRepositoryManager()
	reg := presence.NewRegistry(log)
	dir := directory.New(rm.Users(nil), reg, log)
	mbox := mailbox.New(rm.Mailbox(nil), time.Second, log)
	disp := broadcast.New(reg, dir, 4, time.Second, log)
	engine := delivery.NewEngine(dir, reg, mbox, disp, time.Second, log)
	users := services.NewUserService(nil, rm, dir, auth.NewProvider("k", time.Hour, 4), disp, cfg, log)
	require.NoError(t, seed.New(users, log).Seed(context.Background()))
	chat := services.NewChatService(nil, rm, engine, reg, dir, mbox, nil, log)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(users, chat, nil, time.Second, log))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &relay{url: srv.URL, users: users, chat: chat}
}

func (r *relay) login(t *testing.T, email string) (token, userID string) {
	t.Helper()
	res, err := r.users.Login(context.Background(), email, seed.DemoPassword)
	require.NoError(t, err)
	return res.AccessToken, res.User.ID
}

func collect(t *testing.T, s *EventStream) (<-chan Event, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx, func(ev Event) { events <- ev })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return events, cancel
}

func waitFor(t *testing.T, events <-chan Event, typ string) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", typ)
			return Event{}
		}
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "http://127.0.0.1:3030", want: "ws://127.0.0.1:3030/ws"},
		{in: "https://relay.example/", want: "wss://relay.example/ws"},
		{in: "ws://h:1/base", want: "ws://h:1/base/ws"},
		{in: "ftp://h", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := WebsocketURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialEvents_InvalidTokenIsUnauthorized(t *testing.T) {
	r := newRelay(t)

	_, err := DialEvents(context.Background(), r.url, "not-a-token")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDialEvents_ServerDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := DialEvents(context.Background(), url, "t")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestEventStream_BacklogThenLiveMessages(t *testing.T) {
	r := newRelay(t)
	ctx := context.Background()

	aliceToken, aliceID := r.login(t, "alice@example.com")
	_, bobID := r.login(t, "bob@example.com")

	_, err := r.chat.Send(ctx, bobID, aliceID, "while you were out")
	require.NoError(t, err)

	stream, err := DialEvents(ctx, r.url, aliceToken)
	require.NoError(t, err)
	events, _ := collect(t, stream)

	first := waitFor(t, events, models.EventMessage)
	require.NotNil(t, first.Message)
	assert.Equal(t, "while you were out", first.Message.Content)
	assert.Equal(t, bobID, first.Message.SenderID)

	live, err := r.chat.Send(ctx, bobID, aliceID, "now live")
	require.NoError(t, err)
	assert.True(t, live.Delivered)

	second := waitFor(t, events, models.EventMessage)
	assert.Equal(t, live.ID, second.Message.ID)
}

func TestEventStream_PresenceEvents(t *testing.T) {
	r := newRelay(t)
	ctx := context.Background()

	aliceToken, _ := r.login(t, "alice@example.com")
	bobToken, bobID := r.login(t, "bob@example.com")

	alice, err := DialEvents(ctx, r.url, aliceToken)
	require.NoError(t, err)
	events, _ := collect(t, alice)

	bob, err := DialEvents(ctx, r.url, bobToken)
	require.NoError(t, err)

	online := waitFor(t, events, models.EventUserStatus)
	require.NotNil(t, online.Presence)
	assert.Equal(t, bobID, online.Presence.UserID)
	assert.True(t, online.Presence.IsOnline)

	require.NoError(t, bob.Close())

	offline := waitFor(t, events, models.EventUserStatus)
	assert.Equal(t, bobID, offline.Presence.UserID)
	assert.False(t, offline.Presence.IsOnline)
}

func TestEventStream_RunStopsOnCancel(t *testing.T) {
	r := newRelay(t)
	token, _ := r.login(t, "carol@example.com")

	stream, err := DialEvents(context.Background(), r.url, token)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx, func(Event) {}) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NoError(t, stream.Close())
}
