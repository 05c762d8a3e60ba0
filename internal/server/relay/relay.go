// Package relay реализует WebSocket-ретранслятор сообщений.
//
// Жизненный цикл соединения: Connected -> Authenticating -> Authenticated ->
// Closed. После привязки к паре (chat, identity) на соединении работают две
// независимые обязанности: ingest (прием и сохранение входящих фреймов) и
// delivery (периодическая выборка непрочитанных сообщений собеседника).
// Обязанности координируются только через хранилище; завершает их обе лишь
// закрытие транспорта.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/internal/server/storage"
	"github.com/iudanet/chatrelay/internal/token"
	"github.com/iudanet/chatrelay/pkg/api"
)

// DefaultPollInterval период опроса непрочитанных сообщений
const DefaultPollInterval = time.Second

// Handler обслуживает relay-соединения на /ws
type Handler struct {
	logger       *slog.Logger
	codec        *token.Codec
	identities   storage.IdentityStorage
	chats        storage.ChatStorage
	messages     storage.MessageStorage
	pollInterval time.Duration
	upgrader     websocket.Upgrader
}

// New создает Handler. При pollInterval <= 0 используется DefaultPollInterval.
func New(
	logger *slog.Logger,
	codec *token.Codec,
	identities storage.IdentityStorage,
	chats storage.ChatStorage,
	messages storage.MessageStorage,
	pollInterval time.Duration,
) *Handler {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Handler{
		logger:       logger,
		codec:        codec,
		identities:   identities,
		chats:        chats,
		messages:     messages,
		pollInterval: pollInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// session — одно relay-соединение. Мьютекс сериализует записи: во время
// работы в сокет пишут и ingest (error-фреймы), и delivery.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// binding — результат успешной аутентификации соединения
type binding struct {
	chat   *models.Chat
	caller *models.Identity
}

// ServeHTTP поднимает соединение до WebSocket и запускает его жизненный цикл.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	sess := &session{conn: conn}

	bound, err := h.authenticate(r.Context(), sess)
	if err != nil {
		h.logger.Info("relay connection closed before authentication",
			"remote_addr", r.RemoteAddr,
		)
		return
	}

	logger := h.logger.With(
		"cid", bound.chat.ID,
		"login", bound.caller.Login(),
	)
	logger.Info("relay connection authenticated")

	// Отмена контекста — единственный сигнал обеим обязанностям;
	// срабатывает при закрытии транспорта с любой стороны.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.deliverLoop(ctx, logger, sess, bound)
	}()

	h.ingestLoop(ctx, logger, sess, bound)
	cancel()

	// Разблокирует delivery, если тот завис на записи в мертвый сокет
	conn.Close()
	wg.Wait()

	logger.Info("relay connection closed")
}

// authenticate ждет валидный auth-фрейм. Ошибки аутентификации не закрывают
// соединение: клиенту отправляется error-фрейм, и цикл ждет следующую
// попытку на том же сокете. Возвращает ошибку только при закрытии транспорта.
func (h *Handler) authenticate(ctx context.Context, sess *session) (*binding, error) {
	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return nil, err
		}

		bound, authErr := h.tryAuth(ctx, raw)
		if authErr != "" {
			if err := sess.writeJSON(api.ErrorFrame{Error: authErr}); err != nil {
				return nil, err
			}
			continue
		}

		if err := sess.writeJSON(api.AuthOKFrame{
			Status: "ok",
			Login:  bound.caller.Login(),
		}); err != nil {
			return nil, err
		}
		return bound, nil
	}
}

// tryAuth проверяет одну попытку аутентификации. Каждая причина отказа
// дает свой текст ошибки, чтобы клиент мог различить их при retry.
func (h *Handler) tryAuth(ctx context.Context, raw []byte) (*binding, string) {
	var frame api.AuthFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, "failed to parse json"
	}
	if frame.Token == "" || frame.DestLogin == "" {
		return nil, "incorrect auth frame"
	}

	callerID, err := h.codec.Decode(frame.Token)
	if err != nil {
		return nil, "Auth token is invalid"
	}
	caller, err := h.identities.FindByID(ctx, callerID)
	if err != nil {
		return nil, "Invalid user"
	}

	destName, destHostname, err := models.ParseLogin(frame.DestLogin)
	if err != nil {
		return nil, "invalid destination login"
	}
	peer, err := h.identities.FindByLogin(ctx, destName, destHostname)
	if err != nil {
		return nil, "destination not found"
	}

	chat, err := h.chats.FindChatByPair(ctx, caller.ID, peer.ID)
	if err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			return nil, "create chat before subscribing"
		}
		h.logger.Error("failed to find chat", "error", err)
		return nil, "Internal error"
	}

	return &binding{chat: chat, caller: caller}, ""
}

// ingestLoop принимает исходящие фреймы клиента и сохраняет их как
// непрочитанные сообщения. Некорректный фрейм дает error-фрейм и
// пропускается; соединение завершает только закрытие транспорта.
func (h *Handler) ingestLoop(ctx context.Context, logger *slog.Logger, sess *session, bound *binding) {
	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame api.OutboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			if err := sess.writeJSON(api.ErrorFrame{Error: "failed to parse json"}); err != nil {
				return
			}
			continue
		}
		if frame.Msg == nil || frame.Timestamp == nil {
			if err := sess.writeJSON(api.ErrorFrame{Error: "msg or timestamp not specified"}); err != nil {
				return
			}
			continue
		}

		msg := &models.Message{
			ChatID:    bound.chat.ID,
			AuthorID:  bound.caller.ID,
			Payload:   *frame.Msg,
			Timestamp: *frame.Timestamp,
		}
		if err := h.messages.AppendMessage(ctx, msg); err != nil {
			// Сбой персистентности не фатален для соединения
			logger.Error("failed to persist message", "error", err)
			if err := sess.writeJSON(api.ErrorFrame{Error: "failed to save message"}); err != nil {
				return
			}
		}
	}
}

// deliverLoop с фиксированным периодом выбирает непрочитанные сообщения
// собеседника и проталкивает их клиенту. Сообщение помечается прочитанным
// сразу после успешной записи фрейма в сокет: семантика at-least-once —
// при обрыве между записью и пометкой сообщение будет доставлено повторно.
func (h *Handler) deliverLoop(ctx context.Context, logger *slog.Logger, sess *session, bound *binding) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pending, err := h.messages.ListUnread(ctx, bound.chat.ID, bound.caller.ID)
		if err != nil {
			// Сбой выборки пропускает такт, но не рвет соединение
			if ctx.Err() == nil {
				logger.Error("failed to list unread messages", "error", err)
			}
			continue
		}

		for _, msg := range pending {
			if err := sess.writeJSON(api.DeliveryFrame{
				Msg:       msg.Payload,
				AuthorID:  msg.AuthorID,
				Timestamp: msg.Timestamp,
			}); err != nil {
				return
			}
			if err := h.messages.MarkRead(ctx, msg.ID); err != nil && ctx.Err() == nil {
				logger.Error("failed to mark message read", "msg_id", msg.ID, "error", err)
			}
		}
	}
}
