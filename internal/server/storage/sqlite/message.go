package sqlite

import (
	"context"
	"fmt"

	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/internal/server/storage"
)

// AppendMessage persists a new unread message and sets its id
func (s *Storage) AppendMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (chat_id, author_id, payload, client_ts, read_flag)
		VALUES (?, ?, ?, ?, 0)
	`

	res, err := s.db.ExecContext(ctx, query,
		msg.ChatID,
		msg.AuthorID,
		msg.Payload,
		msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get message id: %w", err)
	}
	msg.ID = id
	msg.Read = false

	return nil
}

// ListUnread returns unread counterpart messages in insertion order.
// Порядок — порядок вставки (id), не клиентский timestamp: клиентские часы
// не монотонны.
func (s *Storage) ListUnread(ctx context.Context, chatID int64, excludeAuthor string) ([]models.Message, error) {
	query := `
		SELECT id, chat_id, author_id, payload, client_ts, read_flag
		FROM messages
		WHERE chat_id = ? AND author_id != ? AND read_flag = 0
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, chatID, excludeAuthor)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.AuthorID, &msg.Payload, &msg.Timestamp, &msg.Read); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// MarkRead flips the read flag of a message
func (s *Storage) MarkRead(ctx context.Context, messageID int64) error {
	query := `UPDATE messages SET read_flag = 1 WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrMessageNotFound
	}

	return nil
}
