package storage

import (
	"context"

	"github.com/iudanet/chatrelay/internal/models"
)

// IdentityStorage defines interface for identity persistence
type IdentityStorage interface {
	// CreateIdentity persists a new identity together with its custody key
	// pair in a single atomic insert.
	// Returns ErrIdentityExists if the name is already taken.
	CreateIdentity(ctx context.Context, identity *models.Identity) error

	// FindByLogin resolves name@hostname to exactly one identity.
	// Returns ErrIdentityNotFound if there is no exact match.
	FindByLogin(ctx context.Context, name, hostname string) (*models.Identity, error)

	// FindByID retrieves identity by id.
	// Returns ErrIdentityNotFound if identity doesn't exist.
	FindByID(ctx context.Context, id string) (*models.Identity, error)

	// Search returns identities whose name and hostname start with the
	// given prefixes. Empty prefix matches everything.
	Search(ctx context.Context, namePrefix, hostnamePrefix string) ([]models.Identity, error)
}

// ChatStorage defines interface for chat persistence
type ChatStorage interface {
	// CreateChat persists a new chat.
	// Returns ErrChatExists if a chat for the unordered pair already exists.
	CreateChat(ctx context.Context, chat *models.Chat) error

	// FindChatByPair resolves the chat for two identities regardless of
	// which of them initiated it.
	// Returns ErrChatNotFound if no chat exists for the pair.
	FindChatByPair(ctx context.Context, idA, idB string) (*models.Chat, error)

	// ListChatsFor returns all chats the identity participates in.
	ListChatsFor(ctx context.Context, identityID string) ([]models.Chat, error)
}

// MessageStorage defines interface for message persistence
type MessageStorage interface {
	// AppendMessage persists a new unread message and sets its id.
	AppendMessage(ctx context.Context, msg *models.Message) error

	// ListUnread returns unread messages of the chat not authored by
	// excludeAuthor, in insertion order.
	ListUnread(ctx context.Context, chatID int64, excludeAuthor string) ([]models.Message, error)

	// MarkRead flips the read flag of a message. Idempotent.
	// Returns ErrMessageNotFound if the message doesn't exist.
	MarkRead(ctx context.Context, messageID int64) error
}
