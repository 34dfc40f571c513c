// Package common defines shared constants and sentinel errors used across
// client and server layers of GophRelay. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Identity errors.
	ErrDuplicateIdentity = errors.New("identity already registered")
	ErrAuthFailed        = errors.New("authentication failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Delivery errors.
	ErrUnknownSender    = errors.New("unknown sender")
	ErrUnknownRecipient = errors.New("unknown recipient")
	ErrTransport        = errors.New("transport error")
)
