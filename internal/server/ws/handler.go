package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/transport"
	"github.com/gorilla/websocket"
)

const (
	maxFrameBytes = 64 << 10
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
)

// UserService verifies tokens and searches the directory.
type UserService interface {
	VerifyToken(token string) (auth.Principal, error)
	Search(ctx context.Context, term, requesterID string) ([]models.PublicUser, error)
}

// ChatService binds sockets and sends messages.
type ChatService interface {
	Connect(ctx context.Context, userID string, conn transport.Conn) error
	DisconnectConn(ctx context.Context, conn transport.Conn) bool
	Send(ctx context.Context, senderID, recipientID, content string) (models.Message, error)
}

// Handler upgrades GET /ws and runs the frame protocol for each socket.
type Handler struct {
	users        UserService
	chat         ChatService
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       logging.Logger
}

// NewHandler builds the websocket endpoint. Browser origins outside
// allowedOrigins are refused; requests without an Origin header are
// accepted.
func NewHandler(users UserService, chat ChatService, allowedOrigins []string, writeTimeout time.Duration, logger logging.Logger) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Handler{
		users: users,
		chat:  chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		writeTimeout: writeTimeout,
		logger:       logger.With("module", "ws"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newConn(raw, h.writeTimeout)
	s := &session{h: h, conn: conn}
	ctx := logging.ContextWith(r.Context(), "remote", r.RemoteAddr)
	h.logger.Info(ctx, "client connected", "conn_id", conn.ID())

	s.run(ctx)
}

type session struct {
	h      *Handler
	conn   *Conn
	userID string
}

func (s *session) run(ctx context.Context) {
	raw := s.conn.ws
	defer func() {
		if s.h.chat.DisconnectConn(context.WithoutCancel(ctx), s.conn) {
			s.h.logger.Info(ctx, "client disconnected", "conn_id", s.conn.ID(), "user_id", s.userID)
		}
		_ = s.conn.Close()
	}()

	raw.SetReadLimit(maxFrameBytes)
	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(done)

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.h.logger.Debug(ctx, "read failed", "conn_id", s.conn.ID(), "error", err)
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(pongWait))

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.fail(ctx, "", CodeInvalidArgument, "invalid frame payload")
			continue
		}
		s.dispatch(ctx, f)
	}
}

func (s *session) keepAlive(done <-chan struct{}) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := s.conn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.h.writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *session) dispatch(ctx context.Context, f Frame) {
	switch f.Type {
	case TypeAuthenticate:
		s.authenticate(ctx, f)
	case TypeSearchUsers:
		s.search(ctx, f)
	case TypeSendMessage:
		s.send(ctx, f)
	case TypePing:
		s.reply(ctx, f.RequestID, PongPayload{Status: "pong", Received: f.Payload, Timestamp: time.Now()})
	default:
		s.fail(ctx, f.RequestID, CodeInvalidArgument, "unsupported frame type")
	}
}

func (s *session) authenticate(ctx context.Context, f Frame) {
	var p AuthenticatePayload
	_ = json.Unmarshal(f.Payload, &p)

	principal, err := s.h.users.VerifyToken(p.Token)
	if err != nil {
		s.h.logger.Info(ctx, "authentication failed", "conn_id", s.conn.ID(), "error", err)
		s.write(ctx, Frame{Type: TypeAuthenticated, RequestID: f.RequestID,
			Payload: mustJSON(AuthenticatedPayload{Success: false, Error: "Invalid token"})})
		return
	}

	if s.userID != "" && s.userID != principal.UserID {
		s.h.chat.DisconnectConn(ctx, s.conn)
	}

	if err := s.h.chat.Connect(ctx, principal.UserID, s.conn); err != nil {
		s.h.logger.Warn(ctx, "bind failed", "conn_id", s.conn.ID(), "user_id", principal.UserID, "error", err)
		s.userID = ""
		s.write(ctx, Frame{Type: TypeAuthenticated, RequestID: f.RequestID,
			Payload: mustJSON(AuthenticatedPayload{Success: false, Error: "User not found"})})
		return
	}
	s.userID = principal.UserID

	s.write(ctx, Frame{Type: TypeAuthenticated, RequestID: f.RequestID,
		Payload: mustJSON(AuthenticatedPayload{Success: true, UserID: principal.UserID, Message: "Authentication successful"})})
	s.h.logger.Info(ctx, "user authenticated", "conn_id", s.conn.ID(), "user_id", principal.UserID)
}

// search answers with an empty list when the caller cannot be identified.
func (s *session) search(ctx context.Context, f Frame) {
	var p SearchPayload
	_ = json.Unmarshal(f.Payload, &p)

	requester := s.userID
	if requester == "" && p.Token != "" {
		if principal, err := s.h.users.VerifyToken(p.Token); err == nil {
			requester = principal.UserID
		}
	}
	if requester == "" {
		s.reply(ctx, f.RequestID, map[string]any{"results": []models.PublicUser{}})
		return
	}

	results, err := s.h.users.Search(ctx, p.Query, requester)
	if err != nil {
		s.h.logger.Error(ctx, "search failed", "user_id", requester, "error", err)
		results = []models.PublicUser{}
	}
	s.reply(ctx, f.RequestID, map[string]any{"results": results})
}

func (s *session) send(ctx context.Context, f Frame) {
	if s.userID == "" {
		s.fail(ctx, f.RequestID, CodeUnauthenticated, "Not authenticated")
		return
	}

	var p SendPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		s.fail(ctx, f.RequestID, CodeInvalidArgument, "invalid send payload")
		return
	}
	if sender := strings.TrimSpace(p.SenderID); sender != "" && sender != s.userID {
		s.h.logger.Warn(ctx, "sender mismatch", "conn_id", s.conn.ID(), "user_id", s.userID, "sender_id", sender)
		s.fail(ctx, f.RequestID, CodeForbidden, "senderId does not match the authenticated user")
		return
	}

	msg, err := s.h.chat.Send(ctx, s.userID, p.RecipientID, p.Message)
	if err != nil {
		s.failErr(ctx, f.RequestID, err)
		return
	}
	s.reply(ctx, f.RequestID, msg)
}

func (s *session) reply(ctx context.Context, requestID string, payload any) {
	s.write(ctx, Frame{Type: TypeAck, RequestID: requestID, Payload: mustJSON(payload)})
}

func (s *session) fail(ctx context.Context, requestID, code, msg string) {
	s.write(ctx, Frame{Type: TypeError, RequestID: requestID, Payload: mustJSON(ErrorPayload{Code: code, Message: msg})})
}

func (s *session) failErr(ctx context.Context, requestID string, err error) {
	code, msg := CodeInternal, "Unknown error occurred"
	switch {
	case errors.Is(err, common.ErrorValidation):
		code, msg = CodeInvalidArgument, strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	case errors.Is(err, common.ErrUnknownSender):
		code, msg = CodeNotFound, "Sender not found"
	case errors.Is(err, common.ErrUnknownRecipient):
		code, msg = CodeNotFound, "Recipient not found"
	case errors.Is(err, common.ErrorNotFound):
		code, msg = CodeNotFound, "User not found"
	default:
		s.h.logger.Error(ctx, "request failed", "conn_id", s.conn.ID(), "error", err)
	}
	s.fail(ctx, requestID, code, msg)
}

func (s *session) write(ctx context.Context, f Frame) {
	if err := s.conn.writeFrame(ctx, f); err != nil {
		s.h.logger.Debug(ctx, "write failed", "conn_id", s.conn.ID(), "type", f.Type, "error", err)
	}
}
