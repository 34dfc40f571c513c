// Package models holds the data types shared by the relay's storage,
// core and service layers.
package models

import "time"

// User is the canonical directory record. PasswordHash is opaque to the
// core; only the identity provider interprets it.
type User struct {
	ID           string
	Name         string
	Email        string
	Mobile       string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the view of a User handed to callers. It never carries the
// credential hash.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	IsOnline  bool      `json:"isOnline"`
}

// Public returns the public view of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Mobile:    u.Mobile,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	if u.PasswordHash != nil {
		c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	return &c
}

// ProfileUpdate carries optional profile changes. Nil fields are left as is.
type ProfileUpdate struct {
	Name  *string
	Email *string
}
