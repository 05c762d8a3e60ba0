package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/chatrelay/internal/crypto"
	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/internal/server/middleware"
	"github.com/iudanet/chatrelay/internal/server/storage"
	"github.com/iudanet/chatrelay/internal/validation"
	"github.com/iudanet/chatrelay/pkg/api"
)

// Register обрабатывает POST /api/user/register.
// Сервер генерирует custody-пару ключей и сохраняет ее вместе с
// идентичностью атомарно; приватная половина запечатана server-wide
// passphrase. Bearer token выдается сразу, в заголовке Auth.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Hostname == "" || req.Password == "" || req.UserPubK == "" {
		h.sendError(w, http.StatusBadRequest, "not all fields specified")
		return
	}
	if err := validation.ValidateName(req.Username); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateHostname(req.Hostname); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	custodyPub, custodyPriv, err := crypto.GenerateKeyPair(h.passphrase)
	if err != nil {
		h.logger.Error("failed to generate custody key pair", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	identity := &models.Identity{
		ID:           uuid.NewString(),
		Name:         req.Username,
		Hostname:     req.Hostname,
		PasswordHash: string(passwordHash),
		UserPubKey:   req.UserPubK,
		CustodyPub:   custodyPub,
		CustodyPriv:  custodyPriv,
		CreatedAt:    time.Now(),
	}

	if err := h.identities.CreateIdentity(r.Context(), identity); err != nil {
		if errors.Is(err, storage.ErrIdentityExists) {
			h.sendError(w, http.StatusConflict, "user already registered")
			return
		}
		h.logger.Error("failed to create identity", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	tok, err := h.codec.Issue(identity.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("identity registered", "login", identity.Login())

	w.Header().Set(middleware.HeaderAuth, tok)
	h.sendJSON(w, http.StatusCreated, api.RegisterResponse{
		Status:  StatusOK,
		UID:     identity.ID,
		SrvPubK: identity.CustodyPub,
		Login:   identity.Login(),
	})
}

// Login обрабатывает POST /api/user/login.
// Bearer token возвращается в заголовке Auth.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Hostname == "" || req.Password == "" {
		h.sendError(w, http.StatusBadRequest, "not all fields specified")
		return
	}

	identity, err := h.identities.FindByLogin(r.Context(), req.Username, req.Hostname)
	if err != nil {
		if errors.Is(err, storage.ErrIdentityNotFound) {
			h.sendError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to find identity", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.Password)); err != nil {
		h.sendError(w, http.StatusUnauthorized, "bad auth data")
		return
	}

	tok, err := h.codec.Issue(identity.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("identity logged in", "login", identity.Login())

	w.Header().Set(middleware.HeaderAuth, tok)
	h.sendJSON(w, http.StatusOK, api.LoginResponse{
		Status:  StatusOK,
		UID:     identity.ID,
		SrvPubK: identity.CustodyPub,
	})
}

// Search обрабатывает GET /api/user/search?username=&hostname=.
// Ищет по префиксам; пустой префикс совпадает со всеми.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	namePrefix := r.URL.Query().Get("username")
	hostnamePrefix := r.URL.Query().Get("hostname")

	found, err := h.identities.Search(r.Context(), namePrefix, hostnamePrefix)
	if err != nil {
		h.logger.Error("failed to search identities", "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logins := make([]string, 0, len(found))
	for _, identity := range found {
		logins = append(logins, identity.Login())
	}

	h.sendJSON(w, http.StatusOK, api.SearchResponse{
		Status: StatusOK,
		Users:  logins,
	})
}
