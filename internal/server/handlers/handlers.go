// Package handlers содержит HTTP обработчики REST части сервера.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/chatrelay/internal/server/storage"
	"github.com/iudanet/chatrelay/internal/token"
	"github.com/iudanet/chatrelay/pkg/api"
)

// StatusOK значение поля status успешных ответов
const StatusOK = "ok"

// Handlers объединяет зависимости REST обработчиков
type Handlers struct {
	logger     *slog.Logger
	identities storage.IdentityStorage
	chats      storage.ChatStorage
	codec      *token.Codec
	passphrase string // server-wide passphrase custody-ключей
	appName    string
	startedAt  time.Time
}

// New создает Handlers
func New(
	logger *slog.Logger,
	identities storage.IdentityStorage,
	chats storage.ChatStorage,
	codec *token.Codec,
	passphrase string,
	appName string,
) *Handlers {
	return &Handlers{
		logger:     logger,
		identities: identities,
		chats:      chats,
		codec:      codec,
		passphrase: passphrase,
		appName:    appName,
		startedAt:  time.Now(),
	}
}

// sendJSON сериализует payload и отправляет его с указанным статусом.
func (h *Handlers) sendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// sendError отправляет ErrorResponse с указанным статусом.
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, api.ErrorResponse{Error: message})
}

// decodeBody разбирает JSON тело запроса в dst.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
