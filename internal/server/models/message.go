package models

import "time"

// Message is one direct message. Delivered flips to true the first time the
// message is handed to a live connection, either at send time or on drain.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Delivered   bool      `json:"delivered"`
}
