package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) error
	Search(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Inbox(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// It returns on EOF or when the user types "exit" or "quit".
//
//	Not logged in:
//	  - help                  show available commands
//	  - register              create an account
//	  - login                 authenticate and start live updates
//	  - stats                 relay statistics
//	  - exit | quit           leave the program
//
//	Logged in, additionally:
//	  - search [term]         find users; no term lists everyone
//	  - send <userID> <text>  send a direct message
//	  - inbox [senderID]      show received messages
//	  - profile               change name or email
//	  - logout                log out and clear local data
//
// Handler errors are reported and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("relay %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if needsLogin(cmd) && !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: search [term], send <userID> <text>, inbox [senderID], profile, stats, logout, exit")
			} else {
				printlnFn("Available commands: register, login, stats, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "profile":
			cmdErr = a.Profile(ctx)

		case "search":
			cmdErr = a.Search(ctx, args)

		case "send":
			cmdErr = a.Send(ctx, args)

		case "inbox":
			cmdErr = a.Inbox(ctx, args)

		case "stats":
			cmdErr = a.Stats(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}

func needsLogin(cmd string) bool {
	switch cmd {
	case "logout", "profile", "search", "send", "inbox":
		return true
	}
	return false
}
