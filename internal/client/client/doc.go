// Package client contains the relay CLI's connections to the server.
//
// # Overview
//
//  1. Client, the request/response contract, and GRPCClient, its gRPC
//     implementation. GRPCClient attaches the access token to every call,
//     rotates an expired token once with the stored refresh token, and maps
//     status codes to the sentinel errors below.
//  2. EventStream, an authenticated websocket session that yields pushed
//     events (messages, presence changes, profile updates).
//  3. InitDatabase and RunMigrations, which open the local sqlite store and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// ErrUnavailable, ErrUnauthorized and ErrRejected can be matched with
// errors.Is; the server's message is kept in the wrapped error text.
package client
