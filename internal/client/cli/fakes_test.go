package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophrelay/internal/client/client"
	"github.com/dmitrijs2005/gophrelay/internal/client/models"
	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
)

// stubInputs feeds texts to successive prompts and returns password for
// the password prompt.
func stubInputs(t *testing.T, password []byte, texts ...string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(texts) == 0 {
			return "", io.EOF
		}
		v := texts[0]
		texts = texts[1:]
		return v, nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeAuth struct {
	regArgs []string
	regErr  error

	loginUser string
	loginPass string
	session   *models.Session
	loginErr  error

	restoreErr error

	profileName, profileEmail *string
	profileErr                error

	logoutCalled bool
	logoutErr    error
}

func (f *fakeAuth) Register(_ context.Context, name, email, mobile, password string) (pb.User, error) {
	f.regArgs = []string{name, email, mobile, password}
	return pb.User{ID: "u9", Name: name}, f.regErr
}

func (f *fakeAuth) Login(_ context.Context, user, pass string) (*models.Session, error) {
	f.loginUser, f.loginPass = user, pass
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session, nil
}

func (f *fakeAuth) Restore(context.Context) (*models.Session, error) { return f.session, f.restoreErr }
func (f *fakeAuth) Session(context.Context) (*models.Session, error) { return f.session, nil }

func (f *fakeAuth) UpdateProfile(_ context.Context, name, email *string) (pb.User, error) {
	f.profileName, f.profileEmail = name, email
	if f.profileErr != nil {
		return pb.User{}, f.profileErr
	}
	u := pb.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = *email
	}
	return u, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	return f.logoutErr
}
func (f *fakeAuth) Ping(context.Context) error  { return nil }
func (f *fakeAuth) Close(context.Context) error { return nil }

type fakeChat struct {
	users  []pb.User
	sent   pb.Message
	sendTo string
	text   string
	inbox  []models.Message
	sender string
	stats  pb.Stats
	err    error

	mu        sync.Mutex
	tokens    []string
	events    []client.Event
	listenErr error
	started   chan struct{}
}

func (f *fakeChat) Search(_ context.Context, q string) ([]pb.User, error) {
	f.text = q
	return f.users, f.err
}

func (f *fakeChat) Send(_ context.Context, to, content string) (pb.Message, error) {
	f.sendTo, f.text = to, content
	return f.sent, f.err
}

func (f *fakeChat) Stats(context.Context) (pb.Stats, error) { return f.stats, f.err }

func (f *fakeChat) Inbox(_ context.Context, sender string) ([]models.Message, error) {
	f.sender = sender
	return f.inbox, f.err
}

// Listen replays events then blocks until ctx ends, unless listenErr is set.
func (f *fakeChat) Listen(ctx context.Context, token string, onEvent func(client.Event)) error {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	for _, ev := range f.events {
		onEvent(ev)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeChat) listenTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func newTestApp(auth *fakeAuth, chat *fakeChat) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &App{
		authService: auth,
		chatService: chat,
		reader:      bufio.NewReader(strings.NewReader("")),
		out:         out,
	}, out
}
