package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/iudanet/chatrelay/pkg/api"
)

// ErrRelayClosed возвращается из Next, когда транспорт закрыт; любая
// другая ошибка Next оставляет соединение рабочим
var ErrRelayClosed = errors.New("relay connection closed")

// RelayConn — relay-соединение клиента, привязываемое к одному чату
type RelayConn struct {
	conn *websocket.Conn
}

// DialRelay открывает relay-соединение к /ws того же сервера
func (c *Client) DialRelay(ctx context.Context) (*RelayConn, error) {
	wsURL := c.baseURL + "/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss" + strings.TrimPrefix(wsURL, "https")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return &RelayConn{conn: conn}, nil
}

// Close закрывает соединение
func (rc *RelayConn) Close() error {
	return rc.conn.Close()
}

// relayFrame — объединение всех фреймов, приходящих от сервера
type relayFrame struct {
	Error     string   `json:"error"`
	Status    string   `json:"status"`
	Login     string   `json:"login"`
	Msg       *string  `json:"msg"`
	AuthorID  string   `json:"author_id"`
	Timestamp *float64 `json:"timestamp"`
}

// Authenticate отправляет auth-фрейм и ждет ответа сервера. При отказе
// сервер оставляет соединение открытым: можно повторить попытку на том же
// RelayConn.
func (rc *RelayConn) Authenticate(token, destLogin string) error {
	if err := rc.conn.WriteJSON(api.AuthFrame{Token: token, DestLogin: destLogin}); err != nil {
		return fmt.Errorf("failed to send auth frame: %w", err)
	}

	var frame relayFrame
	if err := rc.conn.ReadJSON(&frame); err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}
	if frame.Error != "" {
		return fmt.Errorf("relay auth rejected: %s", frame.Error)
	}
	if frame.Status != "ok" {
		return fmt.Errorf("unexpected auth response")
	}
	return nil
}

// Send отправляет шифртекст сообщения с клиентским временем
func (rc *RelayConn) Send(ciphertext string, timestamp float64) error {
	frame := api.OutboundFrame{Msg: &ciphertext, Timestamp: &timestamp}
	if err := rc.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Next блокируется до следующего фрейма от сервера. Error-фреймы
// (например, на некорректный исходящий фрейм) возвращаются как ошибки,
// соединение при этом остается рабочим.
func (rc *RelayConn) Next() (*api.DeliveryFrame, error) {
	_, raw, err := rc.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayClosed, err)
	}

	var frame relayFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("failed to parse relay frame: %w", err)
	}
	if frame.Error != "" {
		return nil, fmt.Errorf("relay error: %s", frame.Error)
	}
	if frame.Msg == nil || frame.Timestamp == nil {
		return nil, fmt.Errorf("incomplete delivery frame")
	}

	return &api.DeliveryFrame{
		Msg:       *frame.Msg,
		AuthorID:  frame.AuthorID,
		Timestamp: *frame.Timestamp,
	}, nil
}
