package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/client/client"
	"github.com/dmitrijs2005/gophrelay/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aliceSession() *models.Session {
	return &models.Session{UserID: "u1", UserName: "Alice", AccessToken: "a1", RefreshToken: "r1"}
}

func TestRegister_Success(t *testing.T) {
	f := &fakeAuth{}
	a, out := newTestApp(f, &fakeChat{})
	stubInputs(t, []byte("secret"), "Alice", "alice@example.org", "555")

	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, []string{"Alice", "alice@example.org", "555", "secret"}, f.regArgs)
	assert.Contains(t, out.String(), "Success! Registered Alice with id u9")
}

func TestRegister_ErrorPropagates(t *testing.T) {
	f := &fakeAuth{regErr: client.ErrRejected}
	a, _ := newTestApp(f, &fakeChat{})
	stubInputs(t, []byte("pw"), "A", "a@x", "1")

	require.ErrorIs(t, a.Register(context.Background()), client.ErrRejected)
}

func TestRegister_PromptErrorStops(t *testing.T) {
	f := &fakeAuth{}
	a, _ := newTestApp(f, &fakeChat{})
	stubInputs(t, []byte("pw"), "only-name")

	require.Error(t, a.Register(context.Background()))
	assert.Nil(t, f.regArgs)
}

func TestLogin_SuccessStartsListenerAndLogoutStopsIt(t *testing.T) {
	f := &fakeAuth{session: aliceSession()}
	chat := &fakeChat{started: make(chan struct{}, 1)}
	a, _ := newTestApp(f, chat)
	stubInputs(t, []byte("pw"), "alice@example.com")

	require.NoError(t, a.Login(context.Background()))

	assert.Equal(t, "alice@example.com", f.loginUser)
	assert.Equal(t, "pw", f.loginPass)
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, ModeOnline, a.Mode)

	select {
	case <-chat.started:
	case <-time.After(2 * time.Second):
		t.Fatal("listener not started")
	}
	assert.Equal(t, []string{"a1"}, chat.listenTokens())
	assert.True(t, a.listening())

	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, f.logoutCalled)
	assert.False(t, a.isLoggedIn())
	assert.False(t, a.listening())
}

func TestLogin_UnavailableSwitchesOffline(t *testing.T) {
	f := &fakeAuth{loginErr: client.ErrUnavailable}
	a, _ := newTestApp(f, &fakeChat{})
	stubInputs(t, []byte("pw"), "alice@example.com")

	err := a.Login(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, ModeOffline, a.Mode)
	assert.False(t, a.listening())
}

func TestLogout_ErrorKeepsSession(t *testing.T) {
	f := &fakeAuth{logoutErr: errors.New("disk")}
	a, _ := newTestApp(f, &fakeChat{})
	a.setSession(aliceSession())

	require.Error(t, a.Logout(context.Background()))
	assert.True(t, a.isLoggedIn())
}

func TestListener_UnauthorizedPrintsHint(t *testing.T) {
	f := &fakeAuth{session: aliceSession()}
	chat := &fakeChat{listenErr: client.ErrUnauthorized}
	a, out := newTestApp(f, chat)
	a.setSession(aliceSession())

	a.startListener(context.Background())

	require.Eventually(t, func() bool { return !a.listening() }, 2*time.Second, 10*time.Millisecond)
	a.outMu.Lock()
	defer a.outMu.Unlock()
	assert.Contains(t, out.String(), "session expired")
}

func TestProfile_NothingToUpdate(t *testing.T) {
	f := &fakeAuth{}
	a, out := newTestApp(f, &fakeChat{})
	a.setSession(aliceSession())
	stubInputs(t, nil, "", "")

	require.NoError(t, a.Profile(context.Background()))
	assert.Nil(t, f.profileName)
	assert.Contains(t, out.String(), "Nothing to update")
}

func TestProfile_UpdatesNameOnly(t *testing.T) {
	f := &fakeAuth{}
	a, out := newTestApp(f, &fakeChat{})
	a.setSession(aliceSession())
	stubInputs(t, nil, "Alicia", "")

	require.NoError(t, a.Profile(context.Background()))
	require.NotNil(t, f.profileName)
	assert.Equal(t, "Alicia", *f.profileName)
	assert.Nil(t, f.profileEmail)
	assert.Equal(t, "Alicia", a.currentSession().UserName)
	assert.Contains(t, out.String(), "Profile updated: Alicia <alice@example.com>")
}

func TestProfile_ErrorPropagates(t *testing.T) {
	f := &fakeAuth{profileErr: client.ErrRejected}
	a, _ := newTestApp(f, &fakeChat{})
	a.setSession(aliceSession())
	stubInputs(t, nil, "", "new@example.com")

	require.ErrorIs(t, a.Profile(context.Background()), client.ErrRejected)
	assert.Equal(t, "Alice", a.currentSession().UserName)
}
