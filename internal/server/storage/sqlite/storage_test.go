package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatrelay/internal/models"
)

// setupTestStorage создает in-memory хранилище с прогнанными миграциями
func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		require.NoError(t, s.Close())
	}
	return s, cleanup
}

// mustCreateIdentityModel собирает идентичность с полями-заглушками
func mustCreateIdentityModel(name, hostname string) *models.Identity {
	return &models.Identity{
		ID:           uuid.New().String(),
		Name:         name,
		Hostname:     hostname,
		PasswordHash: "bcrypt-hash",
		UserPubKey:   "user-pub-pem",
		CustodyPub:   "custody-pub-pem",
		CustodyPriv:  "custody-priv-pem",
		CreatedAt:    time.Now(),
	}
}

// mustCreateIdentity вставляет идентичность с заполненными полями-заглушками
func mustCreateIdentity(t *testing.T, s *Storage, name, hostname string) *models.Identity {
	t.Helper()

	identity := mustCreateIdentityModel(name, hostname)
	require.NoError(t, s.CreateIdentity(context.Background(), identity))
	return identity
}

func mustCreateChat(t *testing.T, s *Storage, init, peer *models.Identity) *models.Chat {
	t.Helper()

	chat := &models.Chat{
		InitID:    init.ID,
		InitLogin: init.Login(),
		PeerID:    peer.ID,
		PeerLogin: peer.Login(),
		Key:       "chat-key-b64",
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateChat(context.Background(), chat))
	return chat
}
