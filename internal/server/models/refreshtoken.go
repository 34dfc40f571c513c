package models

import "time"

// RefreshToken is a server-stored opaque token that can be redeemed once
// for a new token pair.
type RefreshToken struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer redeemable at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
