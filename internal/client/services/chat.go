package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/client/client"
	"github.com/dmitrijs2005/gophrelay/internal/client/models"
	"github.com/dmitrijs2005/gophrelay/internal/client/repositories/messages"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
)

// EventDialer opens an authenticated event stream.
type EventDialer func(ctx context.Context, token string) (client.EventSource, error)

// ChatService covers messaging: directory search, sending, the live event
// stream and the local inbox.
type ChatService interface {
	Search(ctx context.Context, query string) ([]pb.User, error)
	Send(ctx context.Context, recipientID, content string) (pb.Message, error)
	Stats(ctx context.Context) (pb.Stats, error)
	// Listen streams events for the holder of token until ctx is done or the
	// connection drops. Messages are logged before onEvent sees them; a
	// redelivered message is logged once and not reported again.
	Listen(ctx context.Context, token string, onEvent func(client.Event)) error
	// Inbox lists logged messages, optionally from one sender only.
	Inbox(ctx context.Context, senderID string) ([]models.Message, error)
}

type chatService struct {
	client client.Client
	repo   messages.Repository
	dial   EventDialer
	now    func() time.Time
	logger logging.Logger
}

func NewChatService(c client.Client, db *sql.DB, dial EventDialer, logger logging.Logger) ChatService {
	return &chatService{
		client: c,
		repo:   messages.NewSQLiteRepository(db),
		dial:   dial,
		now:    time.Now,
		logger: logger.With("module", "chat"),
	}
}

func (s *chatService) Search(ctx context.Context, query string) ([]pb.User, error) {
	return s.client.SearchUsers(ctx, query)
}

func (s *chatService) Send(ctx context.Context, recipientID, content string) (pb.Message, error) {
	return s.client.SendMessage(ctx, recipientID, content)
}

func (s *chatService) Stats(ctx context.Context) (pb.Stats, error) {
	return s.client.Stats(ctx)
}

func (s *chatService) Listen(ctx context.Context, token string, onEvent func(client.Event)) error {
	stream, err := s.dial(ctx, token)
	if err != nil {
		return err
	}
	defer stream.Close()

	return stream.Run(ctx, func(ev client.Event) {
		if ev.Message != nil {
			stored, err := s.record(ctx, *ev.Message)
			if err != nil {
				s.logger.Error(ctx, "message not logged", "message_id", ev.Message.ID, "error", err)
			}
			if !stored && err == nil {
				s.logger.Debug(ctx, "duplicate message skipped", "message_id", ev.Message.ID)
				return
			}
		}
		onEvent(ev)
	})
}

func (s *chatService) record(ctx context.Context, m pb.Message) (bool, error) {
	return s.repo.Save(ctx, models.Message{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		ReceivedAt:  s.now(),
	})
}

func (s *chatService) Inbox(ctx context.Context, senderID string) ([]models.Message, error) {
	return s.repo.List(ctx, senderID)
}
