package cli

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/dmitrijs2005/gophrelay/internal/client/client"
	"github.com/dmitrijs2005/gophrelay/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) prompt(label string) (string, error) {
	return getSimpleText(a.reader, label, a.writer())
}

func (a *App) writer() io.Writer {
	return lockedWriter{a}
}

// lockedWriter routes prompt output through App.printf.
type lockedWriter struct{ a *App }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.a.printf("%s", p)
	return len(p), nil
}

// Register prompts for name, email, mobile and password and creates an
// account. All fields are required by the server.
func (a *App) Register(ctx context.Context) error {
	var fields [3]string
	for i, label := range []string{"Enter name", "Enter email", "Enter mobile"} {
		v, err := a.prompt(label)
		if err != nil {
			return err
		}
		fields[i] = v
	}

	password, err := getPassword(a.writer())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Register(ctx, fields[0], fields[1], fields[2], string(password))
	if err != nil {
		return err
	}

	a.printf("Success! Registered %s with id %s\n", u.Name, u.ID)
	return nil
}

// Login prompts for credentials, stores the session and opens the event
// stream. The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		a.stopListener()
	}

	userName, err := a.prompt("Enter email or mobile")
	if err != nil {
		return err
	}

	password, err := getPassword(a.writer())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Login(ctx, userName, string(password))
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Login successful")
	a.setSession(s)
	a.setMode(ModeOnline)
	a.startListener(ctx)
	return nil
}

// Logout stops live updates, forgets the session and wipes the local log.
func (a *App) Logout(ctx context.Context) error {
	a.stopListener()
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.setSession(nil)
	return nil
}

// Profile prompts for a new name and email; empty answers keep the
// current value.
func (a *App) Profile(ctx context.Context) error {
	name, err := a.prompt("Enter new name (empty to keep)")
	if err != nil {
		return err
	}
	email, err := a.prompt("Enter new email (empty to keep)")
	if err != nil {
		return err
	}
	if name == "" && email == "" {
		a.printf("Nothing to update\n")
		return nil
	}

	var namePtr, emailPtr *string
	if name != "" {
		namePtr = &name
	}
	if email != "" {
		emailPtr = &email
	}

	u, err := a.authService.UpdateProfile(ctx, namePtr, emailPtr)
	if err != nil {
		return err
	}

	if s := a.currentSession(); s != nil {
		updated := *s
		updated.UserName = u.Name
		a.setSession(&updated)
	}
	a.printf("Profile updated: %s <%s>\n", u.Name, u.Email)
	return nil
}
