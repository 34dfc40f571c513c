package mailbox

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophrelay/internal/dbx"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

// PostgresRepository keeps queued messages in mailbox_messages. Order within
// a recipient's queue is the position column; appends go after the current
// maximum.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, recipientID string, msg models.Message) error {
	query :=
		`INSERT INTO mailbox_messages (id, recipient_id, sender_id, content, created_at, position)
		 VALUES ($1, $2, $3, $4, $5,
		   (SELECT COALESCE(MAX(position), 0) + 1 FROM mailbox_messages WHERE recipient_id = $2))
		 `

	if _, err := r.db.ExecContext(ctx, query, msg.ID, recipientID, msg.SenderID, msg.Content, msg.Timestamp); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Peek(ctx context.Context, recipientID string) ([]models.Message, error) {
	query :=
		`SELECT id, sender_id, recipient_id, content, created_at
		 FROM mailbox_messages
		 WHERE recipient_id = $1
		 ORDER BY position
		 `

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	queued := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		queued = append(queued, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return queued, nil
}

func (r *PostgresRepository) Ack(ctx context.Context, recipientID, messageID string) error {
	query := `DELETE FROM mailbox_messages WHERE recipient_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, recipientID, messageID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context, recipientID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM mailbox_messages WHERE recipient_id = $1`
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Total(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mailbox_messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM mailbox_messages`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
