package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophrelay/internal/client/client"
	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeClient implements client.Client for unit tests.
type fakeClient struct {
	mu sync.Mutex

	loginResp *pb.LoginResponse
	loginErr  error

	registered  []string
	registerErr error

	profile    pb.User
	profileErr error

	users   []pb.User
	sent    []pb.SendMessageRequest
	sendErr error
	stats   pb.Stats
	pingErr error
	closed  bool

	access, refresh string
	onRefresh       func(string, string)
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func (f *fakeClient) Register(_ context.Context, name, email, mobile, password string) (pb.User, error) {
	f.registered = append(f.registered, name, email, mobile, password)
	return pb.User{ID: "new", Name: name, Email: email, Mobile: mobile}, f.registerErr
}

func (f *fakeClient) Login(_ context.Context, _, _ string) (*pb.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.SetTokens(f.loginResp.AccessToken, f.loginResp.RefreshToken)
	return f.loginResp, nil
}

func (f *fakeClient) UpdateProfile(_ context.Context, name, _ *string) (pb.User, error) {
	if f.profileErr != nil {
		return pb.User{}, f.profileErr
	}
	u := f.profile
	if name != nil {
		u.Name = *name
	}
	return u, nil
}

func (f *fakeClient) SearchUsers(context.Context, string) ([]pb.User, error) { return f.users, nil }

func (f *fakeClient) SendMessage(_ context.Context, recipientID, content string) (pb.Message, error) {
	if f.sendErr != nil {
		return pb.Message{}, f.sendErr
	}
	f.sent = append(f.sent, pb.SendMessageRequest{RecipientID: recipientID, Content: content})
	return pb.Message{ID: "m", RecipientID: recipientID, Content: content}, nil
}

func (f *fakeClient) Stats(context.Context) (pb.Stats, error) { return f.stats, nil }
func (f *fakeClient) Ping(context.Context) error             { return f.pingErr }

func (f *fakeClient) SetTokens(a, r string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = a, r
}

func (f *fakeClient) Tokens() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, f.refresh
}

func (f *fakeClient) OnTokensRefreshed(fn func(string, string)) { f.onRefresh = fn }

// fakeStream replays scripted events.
type fakeStream struct {
	events []client.Event
	runErr error
	closed bool
}

func (s *fakeStream) Run(_ context.Context, handle func(client.Event)) error {
	for _, ev := range s.events {
		handle(ev)
	}
	return s.runErr
}

func (s *fakeStream) Close() error { s.closed = true; return nil }
