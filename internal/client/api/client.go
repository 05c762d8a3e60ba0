// Package api реализует клиент REST и relay протоколов сервера.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/chatrelay/pkg/api"
)

// HeaderAuth — заголовок с bearer-токеном
const HeaderAuth = "Auth"

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken устанавливает bearer token для последующих запросов
func (c *Client) SetToken(token string) {
	c.token = token
}

// Register регистрирует новую идентичность. Возвращает ответ сервера и
// выданный bearer token из заголовка Auth.
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, string, error) {
	var resp api.RegisterResponse
	tok, err := c.doRequest(ctx, http.MethodPost, "/api/user/register", req, &resp)
	if err != nil {
		return nil, "", fmt.Errorf("register request failed: %w", err)
	}
	return &resp, tok, nil
}

// Login выполняет аутентификацию. Возвращает ответ сервера и bearer token.
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, string, error) {
	var resp api.LoginResponse
	tok, err := c.doRequest(ctx, http.MethodPost, "/api/user/login", req, &resp)
	if err != nil {
		return nil, "", fmt.Errorf("login request failed: %w", err)
	}
	return &resp, tok, nil
}

// Search ищет идентичности по префиксам имени и hostname
func (c *Client) Search(ctx context.Context, namePrefix, hostnamePrefix string) (*api.SearchResponse, error) {
	query := url.Values{}
	if namePrefix != "" {
		query.Set("username", namePrefix)
	}
	if hostnamePrefix != "" {
		query.Set("hostname", hostnamePrefix)
	}

	path := "/api/user/search"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp api.SearchResponse
	if _, err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	return &resp, nil
}

// NewChat создает чат с собеседником
func (c *Client) NewChat(ctx context.Context, req api.NewChatRequest) (*api.NewChatResponse, error) {
	var resp api.NewChatResponse
	if _, err := c.doRequest(ctx, http.MethodPost, "/api/chat/new", req, &resp); err != nil {
		return nil, fmt.Errorf("new chat request failed: %w", err)
	}
	return &resp, nil
}

// ListChats возвращает чаты вызывающего; ключ каждого чата завернут под
// личный публичный ключ вызывающего
func (c *Client) ListChats(ctx context.Context) (*api.ListChatsResponse, error) {
	var resp api.ListChatsResponse
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/chat/list", nil, &resp); err != nil {
		return nil, fmt.Errorf("list chats request failed: %w", err)
	}
	return &resp, nil
}

// Status запрашивает состояние сервера
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if _, err := c.doRequest(ctx, http.MethodGet, "/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос. Возвращает значение заголовка Auth
// из ответа (пустое, если сервер токен не выдавал).
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) (string, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(HeaderAuth, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return "", fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.Header.Get(HeaderAuth), nil
}
