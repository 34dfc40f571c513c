package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/client/models"
	"github.com/dmitrijs2005/gophrelay/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, m models.Message) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, content, sent_at, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, m.ID, m.SenderID, m.RecipientID, m.Content, m.Timestamp.UnixMilli(), m.ReceivedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to save message %s: %w", m.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to save message %s: %w", m.ID, err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) List(ctx context.Context, senderID string) ([]models.Message, error) {
	query := `SELECT id, sender_id, recipient_id, content, sent_at, received_at FROM messages`
	args := []any{}
	if senderID != "" {
		query += ` WHERE sender_id = ?`
		args = append(args, senderID)
	}
	query += ` ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var result []models.Message
	for rows.Next() {
		var (
			m                models.Message
			sentAt, received int64
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &sentAt, &received); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Timestamp = time.UnixMilli(sentAt).UTC()
		m.ReceivedAt = time.UnixMilli(received).UTC()
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}
