package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/internal/server/storage"
)

func TestAppendMessage(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := mustCreateIdentity(t, s, "alice", "h1")
	bob := mustCreateIdentity(t, s, "bob", "h1")
	chat := mustCreateChat(t, s, alice, bob)

	msg := &models.Message{
		ChatID:    chat.ID,
		AuthorID:  alice.ID,
		Payload:   "Zm9v",
		Timestamp: 1700000000.5,
	}
	require.NoError(t, s.AppendMessage(ctx, msg))
	assert.Equal(t, int64(1), msg.ID)
	assert.False(t, msg.Read)
}

func TestListUnread_ExcludesAuthorAndRead(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := mustCreateIdentity(t, s, "alice", "h1")
	bob := mustCreateIdentity(t, s, "bob", "h1")
	chat := mustCreateChat(t, s, alice, bob)

	first := &models.Message{ChatID: chat.ID, AuthorID: alice.ID, Payload: "one", Timestamp: 3}
	second := &models.Message{ChatID: chat.ID, AuthorID: alice.ID, Payload: "two", Timestamp: 1}
	own := &models.Message{ChatID: chat.ID, AuthorID: bob.ID, Payload: "mine", Timestamp: 2}
	require.NoError(t, s.AppendMessage(ctx, first))
	require.NoError(t, s.AppendMessage(ctx, second))
	require.NoError(t, s.AppendMessage(ctx, own))

	// Для bob: только сообщения alice, в порядке вставки, не по timestamp
	unread, err := s.ListUnread(ctx, chat.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "one", unread[0].Payload)
	assert.Equal(t, "two", unread[1].Payload)

	require.NoError(t, s.MarkRead(ctx, first.ID))

	unread, err = s.ListUnread(ctx, chat.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Payload)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := mustCreateIdentity(t, s, "alice", "h1")
	bob := mustCreateIdentity(t, s, "bob", "h1")
	chat := mustCreateChat(t, s, alice, bob)

	msg := &models.Message{ChatID: chat.ID, AuthorID: alice.ID, Payload: "one", Timestamp: 1}
	require.NoError(t, s.AppendMessage(ctx, msg))

	require.NoError(t, s.MarkRead(ctx, msg.ID))
	// Повторная пометка не ошибка
	require.NoError(t, s.MarkRead(ctx, msg.ID))

	assert.ErrorIs(t, s.MarkRead(ctx, 424242), storage.ErrMessageNotFound)
}
