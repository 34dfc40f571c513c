package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/ws"
	"github.com/gorilla/websocket"
)

// Event is one server push received on the websocket. Exactly one of the
// payload fields is set, matching Type.
type Event struct {
	Type     string
	Message  *pb.Message
	Presence *models.PresenceEvent
	Profile  *models.ProfileEvent
}

// EventSource yields pushed events until it is closed.
type EventSource interface {
	// Run calls handle for every event in arrival order and returns when
	// ctx is done or the connection drops.
	Run(ctx context.Context, handle func(Event)) error
	Close() error
}

// EventStream is a websocket session authenticated as one user.
type EventStream struct {
	conn      *websocket.Conn
	pending   []Event
	closeOnce sync.Once
}

// WebsocketURL turns the relay's HTTP base URL into its websocket endpoint.
func WebsocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// DialEvents opens the websocket at baseURL and authenticates with token.
// Events the relay pushes before confirming authentication (the offline
// backlog) are kept and handed out first by Run.
func DialEvents(ctx context.Context, baseURL, token string) (*EventStream, error) {
	wsURL, err := WebsocketURL(baseURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s := &EventStream{conn: conn}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	}

	if err := s.authenticate(token); err != nil {
		_ = s.Close()
		return nil, err
	}

	_ = conn.SetReadDeadline(time.Time{})
	return s, nil
}

func (s *EventStream) authenticate(token string) error {
	payload, err := json.Marshal(ws.AuthenticatePayload{Token: token})
	if err != nil {
		return err
	}
	if err := s.conn.WriteJSON(ws.Frame{Type: ws.TypeAuthenticate, Payload: payload}); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for {
		var f ws.Frame
		if err := s.conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		if f.Type != ws.TypeAuthenticated {
			if ev, ok := decodeEvent(f); ok {
				s.pending = append(s.pending, ev)
			}
			continue
		}

		var res ws.AuthenticatedPayload
		if err := json.Unmarshal(f.Payload, &res); err != nil {
			return fmt.Errorf("decode authenticated frame: %w", err)
		}
		if !res.Success {
			return fmt.Errorf("%w: %s", ErrUnauthorized, res.Error)
		}
		return nil
	}
}

func (s *EventStream) Run(ctx context.Context, handle func(Event)) error {
	for _, ev := range s.pending {
		handle(ev)
	}
	s.pending = nil

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		var f ws.Frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if ev, ok := decodeEvent(f); ok {
			handle(ev)
		}
	}
}

func (s *EventStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	return err
}

// decodeEvent keeps only push events; acks and errors belong to requests
// this client never sends over the socket.
func decodeEvent(f ws.Frame) (Event, bool) {
	ev := Event{Type: f.Type}
	var err error
	switch f.Type {
	case models.EventMessage:
		ev.Message = &pb.Message{}
		err = json.Unmarshal(f.Payload, ev.Message)
	case models.EventUserStatus:
		ev.Presence = &models.PresenceEvent{}
		err = json.Unmarshal(f.Payload, ev.Presence)
	case models.EventProfileUpdated:
		ev.Profile = &models.ProfileEvent{}
		err = json.Unmarshal(f.Payload, ev.Profile)
	default:
		return Event{}, false
	}
	return ev, err == nil
}
