// Package cli provides the interactive relay command-line client.
//
// It wires configuration, the local sqlite store, the API services and a
// line REPL. On start it resumes a stored session, then keeps a websocket
// open while logged in: incoming messages are logged locally and printed
// together with presence and profile events.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
