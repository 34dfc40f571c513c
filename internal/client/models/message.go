package models

import "time"

// Message is a direct message received over the websocket and kept in the
// local log. ID is the relay-assigned message id and is unique in the log.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Content     string
	Timestamp   time.Time
	ReceivedAt  time.Time
}
