package storage

import "errors"

// Common storage errors
var (
	// ErrIdentityNotFound indicates that identity was not found in storage
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityExists indicates that identity with this name already exists
	ErrIdentityExists = errors.New("identity already exists")

	// ErrChatNotFound indicates that no chat exists for the pair
	ErrChatNotFound = errors.New("chat not found")

	// ErrChatExists indicates that a chat for the unordered pair already exists
	ErrChatExists = errors.New("chat already exists")

	// ErrMessageNotFound indicates that message was not found
	ErrMessageNotFound = errors.New("message not found")
)
