package ws

import (
	"encoding/json"
	"time"
)

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Client to server frame types.
const (
	TypeAuthenticate = "authenticate"
	TypeSearchUsers  = "searchUsers"
	TypeSendMessage  = "sendMessage"
	TypePing         = "ping"
)

// Server to client frame types. Events pushed by the relay use the event
// name as the frame type.
const (
	TypeAuthenticated = "authenticated"
	TypeAck           = "ack"
	TypeError         = "error"
)

// Error codes carried in error frames.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
)

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type AuthenticatedPayload struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SearchPayload struct {
	Query string `json:"query"`
	Token string `json:"token,omitempty"`
}

type SendPayload struct {
	SenderID    string `json:"senderId,omitempty"`
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
}

type PongPayload struct {
	Status    string          `json:"status"`
	Received  json.RawMessage `json:"received,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
