package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/iudanet/chatrelay/internal/crypto"
	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/internal/server/middleware"
	"github.com/iudanet/chatrelay/internal/server/storage"
	"github.com/iudanet/chatrelay/pkg/api"
)

// NewChat обрабатывает POST /api/chat/new.
// Инициатор присылает chat key, завернутый под его собственный
// custody-публичный ключ; сервер разворачивает его custody-приватным
// ключом и сохраняет чат. Неудачная распаковка — отказ аутентификации
// (401), детали крипто-ошибки клиенту не раскрываются.
func (h *Handlers) NewChat(w http.ResponseWriter, r *http.Request) {
	ac := middleware.FromContext(r.Context())
	initiator := ac.Identity

	var req api.NewChatRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if req.DestUsername == "" || req.DestHostname == "" || req.EncAES == "" {
		h.sendError(w, http.StatusBadRequest, "not all fields specified")
		return
	}

	peer, err := h.identities.FindByLogin(r.Context(), req.DestUsername, req.DestHostname)
	if err != nil {
		if errors.Is(err, storage.ErrIdentityNotFound) {
			h.sendError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to find peer", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if peer.ID == initiator.ID {
		h.sendError(w, http.StatusBadRequest, "you can't chat yourself")
		return
	}

	key, err := crypto.DecryptOAEP(req.EncAES, initiator.CustodyPriv, h.passphrase)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "bad aes")
		return
	}
	if err := crypto.ValidateSymmetricKey(string(key)); err != nil {
		h.sendError(w, http.StatusUnauthorized, "bad aes")
		return
	}

	chat := &models.Chat{
		InitID:    initiator.ID,
		InitLogin: initiator.Login(),
		PeerID:    peer.ID,
		PeerLogin: peer.Login(),
		Key:       string(key),
		CreatedAt: time.Now(),
	}

	if err := h.chats.CreateChat(r.Context(), chat); err != nil {
		if errors.Is(err, storage.ErrChatExists) {
			h.sendError(w, http.StatusConflict, "can't create second chat with user")
			return
		}
		h.logger.Error("failed to create chat", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("chat created",
		"cid", chat.ID,
		"init_login", chat.InitLogin,
		"dst_login", chat.PeerLogin,
	)

	h.sendJSON(w, http.StatusCreated, api.NewChatResponse{
		Status: StatusOK,
		CID:    strconv.FormatInt(chat.ID, 10),
	})
}

// ListChats обрабатывает GET /api/chat/list.
// Хранимый ключ каждого чата переупаковывается под личный публичный ключ
// вызывающего при каждом запросе; это stateless-преобразование, запись
// чата не меняется.
func (h *Handlers) ListChats(w http.ResponseWriter, r *http.Request) {
	ac := middleware.FromContext(r.Context())
	caller := ac.Identity

	chats, err := h.chats.ListChatsFor(r.Context(), caller.ID)
	if err != nil {
		h.logger.Error("failed to list chats", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	entries := make([]api.ChatEntry, 0, len(chats))
	for _, chat := range chats {
		wrapped, err := crypto.EncryptOAEP([]byte(chat.Key), caller.UserPubKey)
		if err != nil {
			h.logger.Error("failed to rewrap chat key",
				"cid", chat.ID,
				"login", caller.Login(),
				"error", err,
			)
			h.sendError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		entries = append(entries, api.ChatEntry{
			AES:       wrapped,
			InitLogin: chat.InitLogin,
			DstLogin:  chat.PeerLogin,
			CID:       strconv.FormatInt(chat.ID, 10),
		})
	}

	h.sendJSON(w, http.StatusOK, api.ListChatsResponse{
		Status: StatusOK,
		Chats:  entries,
	})
}
