package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/internal/server/storage"
)

// CreateChat persists a new chat and sets its id.
// Уникальность неупорядоченной пары обеспечивает индекс (pair_lo, pair_hi),
// так что проверка и вставка не требуют транзакции на две операции.
func (s *Storage) CreateChat(ctx context.Context, chat *models.Chat) error {
	lo, hi := orderPair(chat.InitID, chat.PeerID)

	query := `
		INSERT INTO chats (init_id, init_login, peer_id, peer_login, chat_key, pair_lo, pair_hi, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		chat.InitID,
		chat.InitLogin,
		chat.PeerID,
		chat.PeerLogin,
		chat.Key,
		lo,
		hi,
		chat.CreatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrChatExists
		}
		return fmt.Errorf("failed to insert chat: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get chat id: %w", err)
	}
	chat.ID = id

	return nil
}

// FindChatByPair resolves the chat for two identities in either direction
func (s *Storage) FindChatByPair(ctx context.Context, idA, idB string) (*models.Chat, error) {
	lo, hi := orderPair(idA, idB)

	query := selectChat + ` WHERE pair_lo = ? AND pair_hi = ?`

	chat, err := s.scanChat(s.db.QueryRowContext(ctx, query, lo, hi))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return chat, nil
}

// ListChatsFor returns all chats the identity participates in
func (s *Storage) ListChatsFor(ctx context.Context, identityID string) ([]models.Chat, error) {
	query := selectChat + ` WHERE init_id = ? OR peer_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, identityID, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		chat, err := s.scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, *chat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}

	return chats, nil
}

const selectChat = `
	SELECT id, init_id, init_login, peer_id, peer_login, chat_key, created_at
	FROM chats`

func (s *Storage) scanChat(row rowScanner) (*models.Chat, error) {
	chat := &models.Chat{}
	err := row.Scan(
		&chat.ID,
		&chat.InitID,
		&chat.InitLogin,
		&chat.PeerID,
		&chat.PeerLogin,
		&chat.Key,
		&chat.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// orderPair канонизирует пару id для pair_lo/pair_hi
func orderPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}
