package cli

import (
	"context"
	"errors"
	"strings"
	"time"
)

var errUsage = errors.New("invalid usage")

// Search lists users matching the joined arguments.
func (a *App) Search(ctx context.Context, args []string) error {
	users, err := a.chatService.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(users) == 0 {
		a.printf("No users found\n")
		return nil
	}
	for _, u := range users {
		state := "offline"
		if u.IsOnline {
			state = "online"
		}
		a.printf("%s  %-20s %-28s %-12s %s\n", u.ID, u.Name, u.Email, u.Mobile, state)
	}
	return nil
}

// Send delivers args[1:] as one message to the user id args[0].
func (a *App) Send(ctx context.Context, args []string) error {
	if len(args) < 2 {
		a.printf("Usage: send <userID> <text>\n")
		return errUsage
	}

	m, err := a.chatService.Send(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	if m.Delivered {
		a.printf("Delivered (%s)\n", m.ID)
	} else {
		a.printf("Recipient offline, queued (%s)\n", m.ID)
	}
	return nil
}

// Inbox prints the local message log, optionally for one sender.
func (a *App) Inbox(ctx context.Context, args []string) error {
	sender := ""
	if len(args) > 0 {
		sender = args[0]
	}

	msgs, err := a.chatService.Inbox(ctx, sender)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		a.printf("Inbox is empty\n")
		return nil
	}
	for _, m := range msgs {
		a.printf("[%s] %s: %s\n", m.Timestamp.Local().Format(time.DateTime), m.SenderID, m.Content)
	}
	return nil
}

// Stats prints relay-wide counters.
func (a *App) Stats(ctx context.Context) error {
	st, err := a.chatService.Stats(ctx)
	if err != nil {
		return err
	}
	a.printf("users: %d  online: %d  connections: %d  pending: %d\n",
		st.TotalUsers, st.OnlineUsers, st.ActiveConnections, st.PendingMessages)
	return nil
}
