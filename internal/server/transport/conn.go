// Package transport defines the connection handle the relay core delivers
// events through. One Conn represents one physical realtime connection; the
// core never looks past this interface.
package transport

import "context"

// Conn is a live, addressable connection.
type Conn interface {
	// ID identifies the connection in logs and debug output.
	ID() string

	// IsConnected reports whether the connection is still usable.
	IsConnected() bool

	// Deliver sends one event. It must honour ctx's deadline and return an
	// error wrapping common.ErrTransport when the event was not handed over.
	Deliver(ctx context.Context, event string, payload any) error

	// Close tears the connection down. Closing twice is not an error.
	Close() error
}
