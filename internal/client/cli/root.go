package cli

import (
	"context"
	"fmt"
	"log"
)

func (a *App) getStatus() string {
	s := ""
	if sess := a.currentSession(); sess != nil {
		s = sess.UserName + " "
	}
	a.stateMu.RLock()
	mode := a.Mode
	a.stateMu.RUnlock()
	if mode != "" {
		s = s + string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root resumes a stored session when there is one, starts the connectivity
// watcher and blocks in the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to the relay CLI (type 'help' for commands)")

	s, err := a.authService.Restore(ctx)
	if err != nil {
		log.Printf("session restore failed: %v", err)
	}
	if s != nil {
		log.Printf("Resumed session of %s", s.UserName)
		a.setSession(s)
		a.startListener(ctx)
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(wctx, a.config.PingInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
