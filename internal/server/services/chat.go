package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/delivery"
	"github.com/dmitrijs2005/gophrelay/internal/server/directory"
	"github.com/dmitrijs2005/gophrelay/internal/server/mailbox"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/presence"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophrelay/internal/server/transport"
)

// Seeder repopulates the directory after a reset.
type Seeder interface {
	Seed(ctx context.Context) error
}

// ChatService exposes the delivery core to the surfaces and adds the
// diagnostic views.
type ChatService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	engine      *delivery.Engine
	registry    *presence.Registry
	directory   *directory.Directory
	mailbox     *mailbox.Mailbox
	seeder      Seeder
	logger      logging.Logger
}

// NewChatService wires a ChatService. seeder may be nil.
func NewChatService(db *sql.DB, m repomanager.RepositoryManager, engine *delivery.Engine, reg *presence.Registry,
	dir *directory.Directory, mbox *mailbox.Mailbox, seeder Seeder, logger logging.Logger) *ChatService {
	return &ChatService{
		db:          db,
		repomanager: m,
		engine:      engine,
		registry:    reg,
		directory:   dir,
		mailbox:     mbox,
		seeder:      seeder,
		logger:      logger.With("module", "chat"),
	}
}

// Connect binds conn to an authenticated user and flushes pending messages.
func (s *ChatService) Connect(ctx context.Context, userID string, conn transport.Conn) error {
	return s.engine.Connect(ctx, userID, conn)
}

// Disconnect unbinds userID.
func (s *ChatService) Disconnect(ctx context.Context, userID string) bool {
	return s.engine.Disconnect(ctx, userID)
}

// DisconnectConn unbinds whoever conn is the current handle of.
func (s *ChatService) DisconnectConn(ctx context.Context, conn transport.Conn) bool {
	return s.engine.DisconnectConn(ctx, conn)
}

// Send validates the request and hands it to the delivery engine.
func (s *ChatService) Send(ctx context.Context, senderID, recipientID, content string) (models.Message, error) {
	senderID = strings.TrimSpace(senderID)
	recipientID = strings.TrimSpace(recipientID)
	if senderID == "" || recipientID == "" || content == "" {
		return models.Message{}, fmt.Errorf("%w: Missing required fields: senderId, recipientId, or message", common.ErrorValidation)
	}
	return s.engine.Send(ctx, senderID, recipientID, content)
}

// Stats reports users, presence and queue totals.
func (s *ChatService) Stats(ctx context.Context) (models.Stats, error) {
	return s.engine.Stats(ctx)
}

// DebugUsers lists every user with its online flag and the totals.
func (s *ChatService) DebugUsers(ctx context.Context) (*models.DebugUsers, error) {
	list, err := s.directory.List(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &models.DebugUsers{
		Users:  list,
		Total:  len(list),
		Online: stats.OnlineCount,
		Stats:  stats,
	}, nil
}

// DebugConnections describes every current binding.
func (s *ChatService) DebugConnections(ctx context.Context) []models.Binding {
	entries := s.registry.Bindings()
	out := make([]models.Binding, 0, len(entries))
	for _, e := range entries {
		b := models.Binding{UserID: e.UserID, ConnID: e.Conn.ID(), Connected: e.Conn.IsConnected()}
		if u, err := s.directory.Get(ctx, e.UserID); err == nil {
			b.UserName = u.Name
		}
		out = append(out, b)
	}
	return out
}

// DebugUser reports one user's record, presence and queue depth. An unknown
// id yields a report with a nil User.
func (s *ChatService) DebugUser(ctx context.Context, userID string) (*models.UserDebug, error) {
	res := &models.UserDebug{IsOnline: s.registry.IsOnline(userID)}

	u, err := s.directory.Get(ctx, userID)
	switch {
	case err == nil:
		p := u.Public()
		p.IsOnline = res.IsOnline
		res.User = &p
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	if res.PendingMessages, err = s.mailbox.Pending(ctx, userID); err != nil {
		return nil, err
	}

	if conn, ok := s.registry.Lookup(userID); ok {
		res.HasConnection = true
		res.ConnectionDetails = &models.Binding{UserID: userID, ConnID: conn.ID(), Connected: conn.IsConnected()}
		if res.User != nil {
			res.ConnectionDetails.UserName = res.User.Name
		}
	}
	return res, nil
}

// Reset drops every connection, queued message, refresh token and user,
// then reseeds the directory.
func (s *ChatService) Reset(ctx context.Context) error {
	s.registry.Reset(ctx)

	if err := s.mailbox.Reset(ctx); err != nil {
		return fmt.Errorf("error resetting mailbox: %w", err)
	}
	if err := s.repomanager.RefreshTokens(s.db).Reset(ctx); err != nil {
		return fmt.Errorf("error resetting refresh tokens: %w", err)
	}
	if err := s.directory.Reset(ctx); err != nil {
		return fmt.Errorf("error resetting users: %w", err)
	}

	if s.seeder != nil {
		if err := s.seeder.Seed(ctx); err != nil {
			return fmt.Errorf("error seeding users: %w", err)
		}
	}
	s.logger.Info(ctx, "server reset")
	return nil
}
