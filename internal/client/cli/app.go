package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/client/client"
	"github.com/dmitrijs2005/gophrelay/internal/client/config"
	"github.com/dmitrijs2005/gophrelay/internal/client/models"
	"github.com/dmitrijs2005/gophrelay/internal/client/services"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	chatService services.ChatService
	reader      *bufio.Reader

	stateMu sync.RWMutex
	session *models.Session
	Mode    Mode

	outMu sync.Mutex
	out   io.Writer

	listenMu   sync.Mutex
	stopListen context.CancelFunc
	listenDone chan struct{}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stderr, "error")

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	apiClient, err := client.NewRelayClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	dial := func(ctx context.Context, token string) (client.EventSource, error) {
		return client.DialEvents(ctx, c.ServerHTTPAddr, token)
	}

	as := services.NewAuthService(apiClient, db, logger)
	cs := services.NewChatService(apiClient, db, dial, logger)

	return &App{config: c, authService: as, chatService: cs, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) setMode(mode Mode) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)
	defer a.stopListener()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.currentSession() != nil
}

func (a *App) currentSession() *models.Session {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.session
}

func (a *App) setSession(s *models.Session) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.session = s
}

// printf serializes output between the REPL and the event listener.
func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// startListener opens the event stream for the current session in the
// background. It is a no-op while a listener is already running.
func (a *App) startListener(ctx context.Context) {
	a.listenMu.Lock()
	defer a.listenMu.Unlock()

	if a.stopListen != nil || !a.isLoggedIn() {
		return
	}

	s, err := a.authService.Session(ctx)
	if err != nil || s == nil {
		return
	}

	lctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.stopListen = cancel
	a.listenDone = done

	go func() {
		defer close(done)
		err := a.chatService.Listen(lctx, s.AccessToken, a.printEvent)
		if lctx.Err() == nil && err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				a.printf("Live updates unavailable: session expired, please login again\n")
			} else {
				a.printf("Live updates interrupted: %v\n", err)
			}
		}

		a.listenMu.Lock()
		if a.listenDone == done {
			a.stopListen = nil
			a.listenDone = nil
		}
		a.listenMu.Unlock()
	}()
}

// stopListener closes the event stream and waits for it to finish.
func (a *App) stopListener() {
	a.listenMu.Lock()
	cancel, done := a.stopListen, a.listenDone
	a.stopListen, a.listenDone = nil, nil
	a.listenMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *App) listening() bool {
	a.listenMu.Lock()
	defer a.listenMu.Unlock()
	return a.stopListen != nil
}

func (a *App) printEvent(ev client.Event) {
	switch {
	case ev.Message != nil:
		a.printf("\n[%s] message from %s: %s\n", ev.Message.Timestamp.Local().Format(time.Kitchen), ev.Message.SenderID, ev.Message.Content)
	case ev.Presence != nil:
		state := "offline"
		if ev.Presence.IsOnline {
			state = "online"
		}
		a.printf("\n%s (%s) is now %s\n", ev.Presence.UserName, ev.Presence.UserID, state)
	case ev.Profile != nil:
		a.printf("\nprofile updated: %s (%s) %s\n", ev.Profile.Name, ev.Profile.ID, ev.Profile.Email)
	}
}

// StartOnlineStatusWatcher pings the server every interval, tracks the
// connectivity mode and reopens the event stream after an outage.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
				continue
			}
			a.setMode(ModeOnline)
			if a.isLoggedIn() && !a.listening() {
				a.startListener(ctx)
			}

		case <-ctx.Done():
			return
		}
	}
}
