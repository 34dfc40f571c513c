package models

import "time"

// Event names pushed to live connections.
const (
	EventMessage        = "message"
	EventUserStatus     = "userStatus"
	EventProfileUpdated = "user_profile_updated"
)

// PresenceEvent announces that a user came online or went offline.
type PresenceEvent struct {
	UserID    string    `json:"userId"`
	IsOnline  bool      `json:"isOnline"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

// ProfileEvent announces a profile change to every connected client.
type ProfileEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProfileEvent builds the broadcast payload for u.
func NewProfileEvent(u PublicUser) ProfileEvent {
	return ProfileEvent{ID: u.ID, Name: u.Name, Email: u.Email, Mobile: u.Mobile, UpdatedAt: u.UpdatedAt}
}
